package services

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/ipguard/internal/models"
)

func recordN(t *testing.T, svc *AuditService, address, path string, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, svc.Record(context.Background(), &models.AuditEntry{
			Address:    address,
			Path:       path,
			ObservedAt: at.Add(time.Duration(i) * time.Millisecond),
		}))
	}
}

func TestAuditService_RecordTruncatesAndStampsUTC(t *testing.T) {
	svc := NewAuditService(setupTestDB(t))

	loc := time.FixedZone("UTC+2", 2*60*60)
	entry := &models.AuditEntry{
		Address:    strings.Repeat("a", 60),
		Path:       "/" + strings.Repeat("p", 3000),
		Country:    strings.Repeat("c", 150),
		City:       "Berlin",
		ObservedAt: time.Date(2026, 1, 2, 12, 0, 0, 0, loc),
	}
	require.NoError(t, svc.Record(context.Background(), entry))

	list, err := svc.List(AuditFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Address, models.MaxAddressLength)
	assert.Len(t, list[0].Path, models.MaxPathLength)
	assert.Len(t, list[0].Country, models.MaxGeoLength)
	assert.Equal(t, "Berlin", list[0].City)
	assert.True(t, list[0].ObservedAt.Equal(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)))
}

func TestAuditService_RecordKeepsUTF8Valid(t *testing.T) {
	svc := NewAuditService(setupTestDB(t))

	entry := &models.AuditEntry{
		Address: "192.0.2.1",
		Path:    "/" + strings.Repeat("p", models.MaxPathLength-2) + "ü",
		City:    strings.Repeat("a", models.MaxGeoLength-1) + "é",
	}
	require.NoError(t, svc.Record(context.Background(), entry))

	list, err := svc.List(AuditFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, utf8.ValidString(list[0].Path))
	assert.True(t, utf8.ValidString(list[0].City))
	assert.Len(t, list[0].Path, models.MaxPathLength-1)
	assert.Equal(t, strings.Repeat("a", models.MaxGeoLength-1), list[0].City)
}

func TestAuditService_RecordDefaultsObservedAt(t *testing.T) {
	svc := NewAuditService(setupTestDB(t))
	before := time.Now().UTC().Add(-time.Second)

	entry := &models.AuditEntry{Address: "192.0.2.1", Path: "/"}
	require.NoError(t, svc.Record(context.Background(), entry))
	assert.True(t, entry.ObservedAt.After(before))
	assert.NoError(t, svc.Record(context.Background(), nil))
}

func TestAuditService_ListFilterAndLimit(t *testing.T) {
	svc := NewAuditService(setupTestDB(t))
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	recordN(t, svc, "192.0.2.1", "/a", 3, base)
	recordN(t, svc, "192.0.2.2", "/b", 2, base.Add(time.Hour))

	list, err := svc.List(AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "192.0.2.2", list[0].Address)

	list, err = svc.List(AuditFilter{Address: "192.0.2.1"})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAuditService_WindowStats(t *testing.T) {
	svc := NewAuditService(setupTestDB(t))
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	recordN(t, svc, "192.0.2.1", "/", 4, now.Add(-30*time.Minute))
	recordN(t, svc, "192.0.2.2", "/", 1, now.Add(-10*time.Minute))
	// outside the window
	recordN(t, svc, "192.0.2.1", "/", 5, now.Add(-2*time.Hour))

	stats, err := svc.WindowStats(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "192.0.2.1", stats[0].Address)
	assert.Equal(t, int64(4), stats[0].Count)
	assert.True(t, stats[0].LastSeen.Equal(now.Add(-30*time.Minute).Add(3*time.Millisecond)), stats[0].LastSeen)

	assert.Equal(t, "192.0.2.2", stats[1].Address)
	assert.Equal(t, int64(1), stats[1].Count)
	assert.True(t, stats[1].LastSeen.Equal(now.Add(-10*time.Minute)))
}

func TestAuditService_PathStats(t *testing.T) {
	svc := NewAuditService(setupTestDB(t))
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	recordN(t, svc, "192.0.2.1", "/admin", 2, now.Add(-5*time.Minute))
	recordN(t, svc, "192.0.2.1", "/home", 7, now.Add(-5*time.Minute))
	recordN(t, svc, "192.0.2.3", "/admin/users", 1, now.Add(-5*time.Minute))

	stats, err := svc.PathStats(context.Background(), now.Add(-time.Hour), []string{"/admin", "/login"})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "192.0.2.1", stats[0].Address)
	assert.Equal(t, int64(2), stats[0].Count)

	stats, err = svc.PathStats(context.Background(), now.Add(-time.Hour), nil)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestParseStoreTime(t *testing.T) {
	want := time.Date(2026, 2, 1, 12, 30, 15, 500000000, time.UTC)
	for _, raw := range []string{
		"2026-02-01 12:30:15.5+00:00",
		"2026-02-01T12:30:15.5Z",
		"2026-02-01 12:30:15.5",
	} {
		got, err := parseStoreTime(raw)
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(want), raw)
	}

	_, err := parseStoreTime("yesterday")
	assert.Error(t, err)
}
