package mysqlmcp

// QueryInput is the input for the Query tool.
type QueryInput struct {
	SQL string `json:"sql"`
	// Limit bounds the number of returned rows when the statement carries no
	// LIMIT clause of its own. Zero means "use the configured default";
	// a negative value disables the automatic bound entirely.
	Limit int `json:"limit"`
}

// QueryOutput is the output of the Query tool. All errors (MySQL errors,
// guard rejections, hook rejections, Go errors) are placed in Error. The
// error message is evaluated against error_prompts and matching prompt
// messages are appended. Callers only need to check Error, never a Go error.
type QueryOutput struct {
	Columns  []string                 `json:"columns"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"row_count"`
	Rendered string                   `json:"rendered,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// ListTablesInput is the input for the ListTables tool.
type ListTablesInput struct{}

// ListTablesOutput is the output of the ListTables tool. Tables appear in
// the order the catalog returns them.
type ListTablesOutput struct {
	Tables   []string `json:"tables"`
	Rendered string   `json:"rendered,omitempty"`
}

// DescribeTableInput is the input for the DescribeTable tool.
type DescribeTableInput struct {
	Table string `json:"table"`
}

// ColumnDescriptor describes a single column as reported by the catalog.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	// Key is the catalog's key role token: "PRI", "UNI", "MUL", or empty.
	Key string `json:"key,omitempty"`
	// Default is nil when the column default is NULL, which is distinct
	// from a default of the empty string.
	Default *string `json:"default"`
	Extra   string  `json:"extra,omitempty"` // e.g. auto_increment
	// Category is the statistical category derived from Type:
	// "numeric", "text", or "other".
	Category string `json:"category"`
}

// DescribeTableOutput is the output of the DescribeTable tool. Columns
// preserve catalog order; CreateStatement is the verbatim DDL.
type DescribeTableOutput struct {
	Table           string             `json:"table"`
	Columns         []ColumnDescriptor `json:"columns"`
	CreateStatement string             `json:"create_statement"`
	Rendered        string             `json:"rendered,omitempty"`
}

// ListRelationshipsInput is the input for the ListRelationships tool.
type ListRelationshipsInput struct{}

// ForeignKeyEdge is a single directed foreign-key relationship.
type ForeignKeyEdge struct {
	Table            string `json:"table"`
	Column           string `json:"column"`
	Constraint       string `json:"constraint"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// ListRelationshipsOutput is the output of the ListRelationships tool.
// Edges are ordered by source table; an empty slice is a valid result for
// a database without foreign keys.
type ListRelationshipsOutput struct {
	Edges    []ForeignKeyEdge `json:"edges"`
	Rendered string           `json:"rendered,omitempty"`
}

// DescribeDatabaseInput is the input for the DescribeDatabase tool.
type DescribeDatabaseInput struct{}

// DescribeDatabaseOutput is the output of the DescribeDatabase tool: a
// navigational listing of the database's tables and the resources that
// describe them.
type DescribeDatabaseOutput struct {
	Database string   `json:"database"`
	Tables   []string `json:"tables"`
	Rendered string   `json:"rendered,omitempty"`
}

// StatisticsInput is the input for the TableStatistics tool.
type StatisticsInput struct {
	Table string `json:"table"`
}

// ColumnStatistic holds the per-column aggregate profile. Which fields are
// set depends on Category: numeric columns get Min/Max/Mean/StdDev, text
// columns get DistinctCount/MeanLength, other columns get DistinctCount.
// Pointer fields stay nil when the backing aggregate returned NULL (e.g.
// an empty table); the rendering shows those as "N/A".
type ColumnStatistic struct {
	Column        string   `json:"column"`
	Type          string   `json:"type"`
	Category      string   `json:"category"`
	Min           *string  `json:"min,omitempty"`
	Max           *string  `json:"max,omitempty"`
	Mean          *float64 `json:"mean,omitempty"`
	StdDev        *float64 `json:"stddev,omitempty"`
	DistinctCount *int64   `json:"distinct_count,omitempty"`
	MeanLength    *float64 `json:"mean_length,omitempty"`
}

// StatisticsOutput is the output of the TableStatistics tool. Like
// QueryOutput, every failure is reported through Error rather than a Go
// error: a failed column aggregate fails the whole operation and no
// partial Columns slice is returned.
type StatisticsOutput struct {
	Table    string            `json:"table"`
	RowCount int64             `json:"row_count"`
	Columns  []ColumnStatistic `json:"columns"`
	Rendered string            `json:"rendered,omitempty"`
	Error    string            `json:"error,omitempty"`
}
