// Package views turns a filtered dataset table into display-ready output.
//
// Each dataset kind has a fixed recipe that produces headline metrics,
// summary tables, chart specifications and a row-limited preview. Recipes
// are pure: the same table and Options always yield the same View, so any
// notion of "now" must come in through Options.Now.
//
// Charts are described, not drawn. A ChartSpec carries labels and series
// that the HTML shell hands to the chart library in the browser and the
// JSON API returns as is. Missing values inside a series are NaN and are
// encoded as JSON null.
package views
