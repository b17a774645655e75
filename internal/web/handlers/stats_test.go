package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"gymgate/internal/database"
	"gymgate/internal/database/mock"
)

func TestStatsHandler_Get(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	members := mock.NewMemberStore()
	members.AddMember(database.Member{
		Email: "regular@example.com", Name: "Regular",
		Embedding: []float32{1}, MembershipActive: true,
		CreatedAt: now.Add(-90 * 24 * time.Hour),
	})
	members.AddMember(database.Member{
		Email: "fresh@example.com", Name: "Fresh",
		Embedding: []float32{2}, MembershipActive: true,
		CreatedAt: monthStart.Add(48 * time.Hour),
	})
	members.AddMember(database.Member{
		Email: "ghosting@example.com", Name: "Ghosting",
		Embedding: []float32{3}, MembershipActive: true,
		CreatedAt: now.Add(-90 * 24 * time.Hour),
	})
	members.AddMember(database.Member{
		Email: "lapsed@example.com", Name: "Lapsed",
		MembershipActive: false,
		CreatedAt:        now.Add(-200 * 24 * time.Hour),
	})

	events := mock.NewEventStore()
	ctx := context.Background()
	for _, ev := range []database.AccessEvent{
		// Two visits in the last 24h for the regular, in different hours.
		{Email: "regular@example.com", Kind: database.KindEntry, Timestamp: now.Add(-3 * time.Hour)},
		{Email: "regular@example.com", Kind: database.KindExit, Timestamp: now.Add(-2 * time.Hour)},
		{Email: "fresh@example.com", Kind: database.KindEntry, Timestamp: now.Add(-1 * time.Hour)},
		// The ghosting member was last seen ten days ago.
		{Email: "ghosting@example.com", Kind: database.KindEntry, Timestamp: now.Add(-10 * 24 * time.Hour)},
	} {
		if err := events.Append(ctx, ev); err != nil {
			t.Fatalf("seeding events: %v", err)
		}
	}

	handler := NewStatsHandler(members, events)
	handler.now = func() time.Time { return now }

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, 200)

	var resp StatsResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.TotalMembers != 4 || resp.ActiveMembers != 3 || resp.EnrolledMembers != 3 {
		t.Errorf("member counts wrong: %+v", resp)
	}
	if resp.NewThisMonth != 1 {
		t.Errorf("expected 1 new member this month, got %d", resp.NewThisMonth)
	}

	// Two entries inside the 24h window, in two distinct hour buckets.
	total := 0
	for _, b := range resp.VisitsByHour {
		total += b.Visits
	}
	if len(resp.VisitsByHour) != 2 || total != 2 {
		t.Errorf("visit histogram wrong: %+v", resp.VisitsByHour)
	}

	if len(resp.AtRisk) != 1 || resp.AtRisk[0].Email != "ghosting@example.com" {
		t.Fatalf("expected only the ghosting member at risk, got %+v", resp.AtRisk)
	}
	if resp.AtRisk[0].DaysAbsent != 10 {
		t.Errorf("expected 10 days absent, got %d", resp.AtRisk[0].DaysAbsent)
	}
}

func TestStatsHandler_NeverVisitedOldMemberAtRisk(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	members := mock.NewMemberStore()
	members.AddMember(database.Member{
		Email: "silent@example.com", Name: "Silent",
		Embedding: []float32{1}, MembershipActive: true,
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	})
	members.AddMember(database.Member{
		Email: "brandnew@example.com", Name: "Brand New",
		Embedding: []float32{2}, MembershipActive: true,
		CreatedAt: now.Add(-24 * time.Hour),
	})

	handler := NewStatsHandler(members, mock.NewEventStore())
	handler.now = func() time.Time { return now }

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, 200)

	var resp StatsResponse
	parseJSONResponse(t, recorder, &resp)

	// A month-old member with zero visits is a churn risk; a day-old
	// member is not.
	if len(resp.AtRisk) != 1 || resp.AtRisk[0].Email != "silent@example.com" {
		t.Errorf("expected only the silent member at risk, got %+v", resp.AtRisk)
	}
}

func TestStatsHandler_StoreError(t *testing.T) {
	members := mock.NewMemberStore()
	members.ListAllError = errors.New("connection refused")

	handler := NewStatsHandler(members, mock.NewEventStore())

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, 500)
	assertJSONError(t, recorder, "failed to compute stats")
}
