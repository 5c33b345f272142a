//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestReportDB_Migrated(t *testing.T) {
	reportDB := GetReportDB(t)

	ctx := context.Background()

	var tableCount int
	err := reportDB.DB.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'reports'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 1 {
		t.Errorf("expected reports table, got %d matches", tableCount)
	}
}

func TestRedisClient_Ping(t *testing.T) {
	client := GetRedisClient(t)

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
}
