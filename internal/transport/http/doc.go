// Package http implements the dashboard's HTTP surface: the server
// rendered page and the JSON API under /api.
//
// Handlers stay thin. They bind and validate the request, call the
// dashboard service with the caller's session and translate service
// errors into RFC 7807 problem documents.
//
// # Routes
//
//	GET    /                                  dashboard page, ?tab= selects the tab
//	POST   /upload                            multipart upload from the page
//	POST   /clear                             empty every dataset slot
//	POST   /datasets/{kind}/remove            empty one slot
//	GET    /api/datasets                      overview of the session
//	POST   /api/datasets                      multipart upload
//	DELETE /api/datasets                      empty every slot
//	DELETE /api/datasets/{kind}               empty one slot
//	GET    /api/datasets/{kind}/filters       filter choices
//	GET    /api/datasets/{kind}/view          rendered view
//	GET    /api/datasets/{kind}/export        CSV or XLSX download
//	GET    /api/datasets/alarms/active.xlsx   active alarms workbook
//	POST   /api/client-logs                   problems reported by the page
//	GET    /api/health[/ready|/live]          health checks
//
// Every dataset route expects the Sessions middleware upstream.
//
// # Errors
//
// Errors follow RFC 7807:
//
//	{
//	    "type": "/errors/dataset/not-loaded",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "No alarms dataset has been uploaded in this session",
//	    "instance": "/api/datasets/alarms/view"
//	}
package http
