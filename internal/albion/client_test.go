package albion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestChunkItems(t *testing.T) {
	items := []string{"T6_A", "T6_B", "T6_C", "T6_D", "T6_E", "T6_F", "T6_G"}

	tests := []struct {
		name      string
		chunkSize int
		expected  int
	}{
		{"Chunk by 2", 2, 4},
		{"Chunk by 3", 3, 3},
		{"Chunk by 7", 7, 1},
		{"Chunk by 250", 250, 1},
		{"Chunk by 1", 1, 7},
		{"Zero size", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkItems(items, tt.chunkSize)
			if len(chunks) != tt.expected {
				t.Errorf("Expected %d chunks, got %d", tt.expected, len(chunks))
			}

			// Verify all items are present, in order
			var flat []string
			for _, chunk := range chunks {
				if tt.chunkSize > 0 && len(chunk) > tt.chunkSize {
					t.Errorf("Chunk of %d exceeds size %d", len(chunk), tt.chunkSize)
				}
				flat = append(flat, chunk...)
			}
			if strings.Join(flat, ",") != strings.Join(items, ",") {
				t.Errorf("Expected %v, got %v", items, flat)
			}
		})
	}

	if chunks := ChunkItems(nil, 250); len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestQualityString(t *testing.T) {
	labels := []string{"Normal", "Good", "Outstanding", "Excellent", "Masterpiece"}
	for i, q := range Qualities {
		if q.String() != labels[i] {
			t.Errorf("Expected %s, got %s", labels[i], q.String())
		}
		if !q.Valid() {
			t.Errorf("Expected %d to be valid", q)
		}
	}
	if Quality(6).Valid() {
		t.Error("Quality 6 should be invalid")
	}
	if joinQualities(Qualities) != "1,2,3,4,5" {
		t.Errorf("Unexpected quality query %q", joinQualities(Qualities))
	}
}

// priceServer answers with one Caerleon record per requested id and fails
// any request that contains an id listed in failing.
func priceServer(t *testing.T, failing map[string]int) (*httptest.Server, *[]string) {
	t.Helper()

	var mu sync.Mutex
	var paths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v2/stats/prices/"), ",")

		mu.Lock()
		paths = append(paths, strings.Join(ids, ","))
		mu.Unlock()

		if got := r.URL.Query().Get("locations"); got != "Black Market,Caerleon" {
			t.Errorf("Expected locations 'Black Market,Caerleon', got '%s'", got)
		}
		if got := r.URL.Query().Get("qualities"); got != "1,2,3,4,5" {
			t.Errorf("Expected qualities '1,2,3,4,5', got '%s'", got)
		}

		for _, id := range ids {
			if status, ok := failing[id]; ok {
				if status == 0 {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte("{not json"))
					return
				}
				w.WriteHeader(status)
				return
			}
		}

		records := make([]PriceRecord, 0, len(ids))
		for _, id := range ids {
			records = append(records, PriceRecord{ItemID: id, Quality: QualityNormal, City: "Caerleon", SellPriceMin: 100})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}))
	t.Cleanup(srv.Close)

	return srv, &paths
}

func newTestClient(baseURL string, chunkSize int) *Client {
	return NewClient(ClientConfig{
		BaseURL:   baseURL + "/api/v2/stats/prices/",
		ChunkSize: chunkSize,
		Timeout:   5 * time.Second,
	})
}

func TestFetchPricesChunksInOrder(t *testing.T) {
	srv, paths := priceServer(t, nil)
	client := newTestClient(srv.URL, 2)

	items := []string{"T6_A", "T6_B", "T6_C", "T6_D@1", "T6_E"}
	records := client.FetchPrices(context.Background(), items, []string{"Black Market", "Caerleon"}, Qualities)

	if len(*paths) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(*paths))
	}
	if (*paths)[1] != "T6_C,T6_D@1" {
		t.Errorf("Expected second chunk 'T6_C,T6_D@1', got '%s'", (*paths)[1])
	}

	if len(records) != len(items) {
		t.Fatalf("Expected %d records, got %d", len(items), len(records))
	}
	for i, rec := range records {
		if rec.ItemID != items[i] {
			t.Errorf("Expected record %d to be %s, got %s", i, items[i], rec.ItemID)
		}
	}
}

func TestFetchPricesDropsFailedChunks(t *testing.T) {
	srv, paths := priceServer(t, map[string]int{
		"T6_C": http.StatusTooManyRequests,
		"T6_E": 0, // malformed body
	})
	client := newTestClient(srv.URL, 2)

	items := []string{"T6_A", "T6_B", "T6_C", "T6_D", "T6_E", "T6_F", "T6_G"}
	records := client.FetchPrices(context.Background(), items, []string{"Black Market", "Caerleon"}, Qualities)

	if len(*paths) != 4 {
		t.Errorf("Expected every chunk to be requested, got %d requests", len(*paths))
	}

	var got []string
	for _, rec := range records {
		got = append(got, rec.ItemID)
	}
	if strings.Join(got, ",") != "T6_A,T6_B,T6_G" {
		t.Errorf("Expected only healthy chunks [T6_A T6_B T6_G], got %v", got)
	}
}

func TestFetchPricesCancelled(t *testing.T) {
	srv, paths := priceServer(t, nil)
	client := newTestClient(srv.URL, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := client.FetchPrices(ctx, []string{"T6_A", "T6_B"}, []string{"Black Market", "Caerleon"}, Qualities)
	if len(records) != 0 {
		t.Errorf("Expected no records after cancellation, got %d", len(records))
	}
	if len(*paths) != 0 {
		t.Errorf("Expected no requests after cancellation, got %d", len(*paths))
	}
}

func TestClockNow(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "worldtimeapi payload",
			status:   http.StatusOK,
			body:     `{"datetime":"2024-05-01T12:30:00.123456+00:00","timezone":"Etc/UTC"}`,
			expected: time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC),
		},
		{
			name:     "offset converted to UTC",
			status:   http.StatusOK,
			body:     `{"datetime":"2024-05-01T07:30:00-05:00"}`,
			expected: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name:     "utc_datetime fallback",
			status:   http.StatusOK,
			body:     `{"utc_datetime":"2024-05-01T12:30:00Z"}`,
			expected: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		},
		{name: "server error", status: http.StatusBadGateway, body: `{}`, wantErr: true},
		{name: "missing datetime", status: http.StatusOK, body: `{}`, wantErr: true},
		{name: "bad datetime", status: http.StatusOK, body: `{"datetime":"yesterday"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			now, err := NewClock(srv.URL, time.Second).Now(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %v", now)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !now.Equal(tt.expected) || now.Location() != time.UTC {
				t.Errorf("Expected %v, got %v", tt.expected, now)
			}
		})
	}
}
