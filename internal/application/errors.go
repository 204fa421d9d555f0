package application

import "errors"

var ErrNotFound = errors.New("not found")

// ErrNoData marks an empty extraction result. An empty batch is an upstream
// anomaly, never silently accepted as zero new rows.
var ErrNoData = errors.New("no data received from provider")
