package dashboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type WidgetType string

const (
	WidgetMetric WidgetType = "metric"
	WidgetChart  WidgetType = "chart"
	WidgetTable  WidgetType = "table"
)

type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
	ChartArea ChartType = "area"
	ChartPie  ChartType = "pie"
)

type Layout string

const (
	LayoutGrid  Layout = "grid"
	LayoutStack Layout = "stack"
)

// Widget is one visualization unit inside a dashboard config, bound to a
// query by name. Field names follow the persisted JSON shape.
type Widget struct {
	Type      WidgetType `json:"type"`
	Title     string     `json:"title,omitempty"`
	QueryName string     `json:"queryName"`
	Hidden    bool       `json:"hidden,omitempty"`
	ValueKey  string     `json:"valueKey,omitempty"`
	ChartType ChartType  `json:"chartType,omitempty"`
	XKey      string     `json:"xKey,omitempty"`
	YKey      string     `json:"yKey,omitempty"`
	Columns   []string   `json:"columns,omitempty"`
}

// Config is the dashboard's stored configuration blob.
type Config struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Layout      Layout   `json:"layout,omitempty"`
	Widgets     []Widget `json:"widgets"`
}

func ParseConfig(raw string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decoding dashboard config: %w", err)
	}
	if cfg.Widgets == nil {
		cfg.Widgets = []Widget{}
	}
	return &cfg, nil
}

func (c *Config) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding dashboard config: %w", err)
	}
	return string(data), nil
}

// numericValue interprets a cell as a number. Warehouse drivers and JSON
// round-trips deliver numbers as float64, integer types, or numeric strings.
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
