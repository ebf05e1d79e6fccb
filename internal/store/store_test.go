package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/streamdex/streamdex/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func genChannels(n int, group string) []catalog.Channel {
	out := make([]catalog.Channel, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.Channel{
			ID:    fmt.Sprintf("ch%03d", i),
			Name:  fmt.Sprintf("Channel %03d", i),
			URL:   fmt.Sprintf("http://cdn.example/%d", i),
			Group: group,
		})
	}
	return out
}

func TestReplaceAndPagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", genChannels(45, "Movies"), []string{"Movies"}); err != nil {
		t.Fatal(err)
	}

	page0, err := s.ChannelsPage(ctx, "u1", "Movies", 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page0.Channels) != 20 || page0.Total != 45 || !page0.HasMore {
		t.Errorf("page0: len=%d total=%d hasMore=%v", len(page0.Channels), page0.Total, page0.HasMore)
	}
	page2, err := s.ChannelsPage(ctx, "u1", "Movies", 2, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Channels) != 5 || page2.HasMore {
		t.Errorf("page2: len=%d hasMore=%v", len(page2.Channels), page2.HasMore)
	}
}

func TestChannelsPageEpisodicFirstOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	channels := []catalog.Channel{
		{ID: "m1", Name: "Zebra Documentary", Group: "Mixed"},
		{ID: "e2", Name: "Alpha S01E02", Group: "Mixed", Season: 1, Episode: 2},
		{ID: "m2", Name: "Aardvark Movie", Group: "Mixed"},
		{ID: "e1", Name: "Alpha S01E01", Group: "Mixed", Season: 1, Episode: 1},
	}
	if err := s.Replace(ctx, "u1", channels, []string{"Mixed"}); err != nil {
		t.Fatal(err)
	}
	page, err := s.ChannelsPage(ctx, "u1", "all", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"e1", "e2", "m2", "m1"}
	for i, id := range want {
		if page.Channels[i].ID != id {
			t.Errorf("channels[%d].ID = %q; want %q", i, page.Channels[i].ID, id)
		}
	}
}

func TestReplaceIsTotal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", genChannels(10, "Old"), []string{"Old"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, "u1", genChannels(3, "New"), []string{"New"}); err != nil {
		t.Fatal(err)
	}

	cats, err := s.Categories(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0] != "New" {
		t.Errorf("categories = %v; old catalog leaked", cats)
	}
	page, err := s.ChannelsPage(ctx, "u1", "all", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d; want 3", page.Total)
	}
	for _, ch := range page.Channels {
		if ch.Group != "New" {
			t.Errorf("leftover channel from prior catalog: %+v", ch)
		}
	}
}

func TestReplaceEmptyCatalogClears(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", genChannels(5, "X"), []string{"X"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, "u1", nil, nil); err != nil {
		t.Fatal(err)
	}
	has, err := s.HasCatalog(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Error("HasCatalog = true after empty replace")
	}
	meta, err := s.Metadata(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if meta["totalChannels"] != "0" {
		t.Errorf("totalChannels = %q; want 0", meta["totalChannels"])
	}
}

func TestDuplicateIDsSkippedNotOverwritten(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	channels := []catalog.Channel{
		{ID: "dup", Name: "First Write", URL: "http://a", Group: "G"},
		{ID: "dup", Name: "Second Write", URL: "http://b", Group: "G"},
		{ID: "other", Name: "Other", URL: "http://c", Group: "G"},
	}
	if err := s.Replace(ctx, "u1", channels, []string{"G"}); err != nil {
		t.Fatal(err)
	}
	page, err := s.ChannelsPage(ctx, "u1", "all", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d; want 2 (duplicate skipped)", page.Total)
	}
	for _, ch := range page.Channels {
		if ch.ID == "dup" && ch.Name != "First Write" {
			t.Errorf("first write did not win: %+v", ch)
		}
	}
}

func TestReplaceBatchesLargeCatalogs(t *testing.T) {
	s := openTestStore(t)
	s.BatchSize = 7 // force multiple batches
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", genChannels(23, "G"), []string{"G"}); err != nil {
		t.Fatal(err)
	}
	page, err := s.ChannelsPage(ctx, "u1", "all", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 23 {
		t.Errorf("total = %d; want 23", page.Total)
	}
}

func TestTenantsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", genChannels(4, "A"), []string{"A"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, "u2", genChannels(2, "B"), []string{"B"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAll(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	has1, _ := s.HasCatalog(ctx, "u1")
	has2, _ := s.HasCatalog(ctx, "u2")
	if has1 || !has2 {
		t.Errorf("tenant isolation broken: u1=%v u2=%v", has1, has2)
	}
}

func TestDeleteAllIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.DeleteAll(ctx, "ghost"); err != nil {
		t.Errorf("DeleteAll on empty tenant: %v", err)
	}
}

func TestCategoriesSortedAscending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", nil, []string{"Zeta", "Alpha", "Mid"}); err != nil {
		t.Fatal(err)
	}
	cats, err := s.Categories(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Alpha", "Mid", "Zeta"}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("cats[%d] = %q; want %q", i, cats[i], want[i])
		}
	}
}

func TestValidationErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.ChannelsPage(ctx, "", "all", 0, 20); !errors.Is(err, catalog.ErrValidation) {
		t.Errorf("missing tenant: got %v", err)
	}
	if _, err := s.ChannelsPage(ctx, "u1", "all", -1, 20); !errors.Is(err, catalog.ErrValidation) {
		t.Errorf("negative page: got %v", err)
	}
	if _, err := s.ChannelsPage(ctx, "u1", "all", 0, 0); !errors.Is(err, catalog.ErrValidation) {
		t.Errorf("zero pageSize: got %v", err)
	}
}

// Readers must see either the outgoing snapshot or the incoming one in full.
// Hammering ChannelsPage against a looping Replace catches the mixed state
// where the count resolves against a version whose rows the swap has already
// deleted: a total claiming channels with an empty page.
func TestReadsSeeWholeSnapshotDuringReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	channels := genChannels(40, "G")
	if err := s.Replace(ctx, "u1", channels, []string{"G"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := s.Replace(ctx, "u1", channels, []string{"G"}); err != nil {
				t.Errorf("replace %d: %v", i, err)
				return
			}
		}
	}()

	for reads := 0; ; reads++ {
		select {
		case <-done:
			if reads == 0 {
				t.Fatal("no reads overlapped the replaces")
			}
			return
		default:
		}
		page, err := s.ChannelsPage(ctx, "u1", "all", 0, 10)
		if err != nil {
			t.Fatalf("read %d: %v", reads, err)
		}
		if page.Total != 40 || len(page.Channels) != 10 {
			t.Fatalf("read %d: torn snapshot: total=%d len=%d", reads, page.Total, len(page.Channels))
		}
	}
}

func TestMetadataRecordedOnReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Replace(ctx, "u1", genChannels(6, "G"), []string{"G"}); err != nil {
		t.Fatal(err)
	}
	meta, err := s.Metadata(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if meta["totalChannels"] != "6" {
		t.Errorf("totalChannels = %q", meta["totalChannels"])
	}
	if meta["lastUpdated"] == "" {
		t.Error("lastUpdated not set")
	}
}
