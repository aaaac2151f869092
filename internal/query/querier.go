package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NetPulse/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// AggregateRequest selects which written flow metrics to total up.
type AggregateRequest struct {
	ReportName string     `json:"report_name"`
	EndTime    *time.Time `json:"end_time"`
}

// ReportTotals is one row of an aggregation result.
type ReportTotals struct {
	ReportName   string `json:"report_name"`
	TotalBytes   uint64 `json:"total_bytes"`
	TotalPackets uint64 `json:"total_packets"`
	FlowCount    uint64 `json:"flow_count"`
}

// Querier defines the interface for querying written flow data.
type Querier interface {
	AggregateTotals(ctx context.Context, req AggregateRequest) ([]ReportTotals, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// AggregateTotals builds and executes a dynamic aggregation query. Only the
// latest write per flow counts, so overlapping snapshots do not double-bill.
func (q *clickhouseQuerier) AggregateTotals(ctx context.Context, req AggregateRequest) ([]ReportTotals, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			ReportName,
			SUM(LatestByteCount) AS TotalBytes,
			SUM(LatestPacketCount) AS TotalPackets,
			COUNT(*) AS FlowCount
		FROM (
			SELECT
				ReportName,
				FlowKey,
				argMax(ByteCount, Timestamp) AS LatestByteCount,
				argMax(PacketCount, Timestamp) AS LatestPacketCount
			FROM flow_metrics
	`)

	var whereClauses []string
	args := []interface{}{}

	if req.EndTime != nil {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, *req.EndTime)
	}
	if req.ReportName != "" {
		whereClauses = append(whereClauses, "ReportName = ?")
		args = append(args, req.ReportName)
	}

	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	queryBuilder.WriteString(`
			GROUP BY ReportName, FlowKey
		)
		GROUP BY ReportName
	`)

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []ReportTotals
	for rows.Next() {
		var row ReportTotals
		if err := rows.Scan(&row.ReportName, &row.TotalBytes, &row.TotalPackets, &row.FlowCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, row)
	}

	return results, rows.Err()
}
