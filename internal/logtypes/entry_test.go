package logtypes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSortByTimeIsStable(t *testing.T) {
	t1 := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	entries := []ErrorEntry{
		{Time: t2, IndexID: "a"},
		{Time: t1, IndexID: "b"},
		{Time: t2, IndexID: "c"},
		{Time: t1, IndexID: "d"},
	}
	SortByTime(entries)

	var got []string
	for _, e := range entries {
		got = append(got, e.IndexID)
	}
	if strings.Join(got, "") != "bdac" {
		t.Errorf("order = %v, want [b d a c]", got)
	}
}

func TestErrorEntry_JSONOmitsEmptyMessages(t *testing.T) {
	data, err := json.Marshal(ErrorEntry{Time: time.Now(), Label: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "messages") {
		t.Errorf("empty messages should be omitted: %s", data)
	}
	if !strings.Contains(string(data), `"flow_id"`) {
		t.Errorf("flow_id missing: %s", data)
	}
}
