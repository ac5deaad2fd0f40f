package handlers

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func sseRequest(t *testing.T, handlers *SSEHandlers, target string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected content-type text/event-stream, got %q", ct)
	}
	return w.Body.String()
}

func TestNewSSEHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	logger := testLogger()
	handlers := NewSSEHandlers(dashboard, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.dashboard != dashboard {
		t.Error("NewSSEHandlers() should set dashboard field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleDashboard_PatchesFragments(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	body := sseRequest(t, handlers, "/sse/dashboard")

	for _, want := range []string{
		"event: datastar-patch-elements",
		`id="filters"`,
		`id="notices"`,
		`id="kpis"`,
		`id="timeseries"`,
		`id="top-products"`,
		`id="heatmap"`,
		`id="export"`,
		"$650.00",
		"event: datastar-patch-signals",
		`"_topProducts"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q", want)
		}
	}
}

func TestSSEHandlers_HandleDashboard_ReadsSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	signals := `{"region":"East","state":"New York","category":"All","subCategory":"All","from":"","to":"","metric":"Profit"}`
	body := sseRequest(t, handlers, "/sse/dashboard?datastar="+url.QueryEscape(signals))

	if !strings.Contains(body, "$400.00") {
		t.Error("expected East/New York sales total in KPI tiles")
	}
	if !strings.Contains(body, "Top 10 Products by Profit") {
		t.Error("expected metric in top products heading")
	}
	if links := html.UnescapeString(body); !strings.Contains(links, "region=East") || !strings.Contains(links, "state=New+York") {
		t.Error("expected export links to carry the selection")
	}
}

func TestSSEHandlers_HandleDashboard_ResetsStaleSelection(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	signals := `{"region":"West","state":"Ohio","metric":"Sales"}`
	body := sseRequest(t, handlers, "/sse/dashboard?datastar="+url.QueryEscape(signals))

	if !strings.Contains(body, `"state":"All"`) {
		t.Errorf("expected state signal reset to All: %s", body)
	}
	if strings.Contains(body, `"region":"All"`) {
		t.Error("region is still valid and must not be reset")
	}
	if !strings.Contains(body, "$50.00") {
		t.Error("expected West totals")
	}
}

func TestSSEHandlers_HandleDashboard_NoData(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	body := sseRequest(t, handlers, "/sse/dashboard?from=2017-01-11&to=2017-02-14")

	if !strings.Contains(body, "No data available for the selected filters and date range. Please adjust your filters.") {
		t.Error("expected no data warning")
	}
	if strings.Contains(body, "Sales Change vs Previous 30 Days") {
		t.Error("trend must not be shown without data")
	}
}

func TestSSEHandlers_HandleDashboard_ResetsDatesOutsideBounds(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	signals := `{"region":"West","from":"2017-01-10","to":"2017-02-15","metric":"Sales"}`
	body := sseRequest(t, handlers, "/sse/dashboard?datastar="+url.QueryEscape(signals))

	if !strings.Contains(body, `"from":""`) || !strings.Contains(body, `"to":""`) {
		t.Errorf("expected date signals reset to the default bounds: %s", body)
	}
	if !strings.Contains(body, "$50.00") {
		t.Error("expected West totals over its own date range")
	}
	if strings.Contains(body, "No data available") {
		t.Error("stale dates must not leave the dashboard empty")
	}
	if strings.Contains(body, "from=2017-01-10") {
		t.Error("export links must drop the reset dates")
	}
}

func TestSSEHandlers_HandleDashboard_InvalidDate(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	body := sseRequest(t, handlers, "/sse/dashboard?from=yesterday")

	if !strings.Contains(body, "invalid from date") {
		t.Errorf("expected parse error in notices: %s", body)
	}
	if strings.Contains(body, `id="kpis"`) {
		t.Error("KPI tiles must not be patched for invalid input")
	}
}

func TestSSEHandlers_HandleDashboard_BadSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestDashboard(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/sse/dashboard?datastar=%7Bnot-json", nil)
	w := httptest.NewRecorder()
	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
