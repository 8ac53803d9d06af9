// Package exporter writes dashboard tables as downloadable files.
//
// CSVWriter streams a table to any io.Writer behind a UTF-8 BOM so
// spreadsheet tools detect the encoding; StreamWriter is the record level
// writer underneath it. XLSXWriter produces a single sheet workbook with a
// bold, frozen header row from the records TableRecords renders:
//
//	n, err := exporter.NewCSVWriter().WriteTable(w, tbl, nil)
//
//	headers, records := exporter.TableRecords(tbl, nil)
//	err := exporter.NewXLSXWriter().Write(w, "Alarms", headers, records)
package exporter
