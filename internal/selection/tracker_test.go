package selection

import (
	"testing"

	"github.com/romdeck/romdeck/internal/models"
)

func TestToggleAndCount(t *testing.T) {
	tr := NewTracker()
	tr.SetPlatform("snes")

	gameA := models.Game{Name: "A", URL: "http://host/a.zip"}
	gameB := models.Game{Name: "B", URL: "http://host/b.zip"}

	if !tr.Toggle("snes", gameA) {
		t.Error("first toggle should mark")
	}
	tr.Toggle("snes", gameB)
	if tr.Count() != 2 {
		t.Errorf("count = %d, want 2", tr.Count())
	}

	if tr.Toggle("snes", gameA) {
		t.Error("second toggle should unmark")
	}
	if tr.Count() != 1 || tr.Marked("http://host/a.zip") {
		t.Error("A should be unmarked")
	}
}

func TestCollectPreservesMarkingOrder(t *testing.T) {
	tr := NewTracker()
	tr.SetPlatform("snes")
	tr.Toggle("snes", models.Game{Name: "B", URL: "u-b"})
	tr.Toggle("snes", models.Game{Name: "A", URL: "u-a"})

	items := tr.Collect()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].GameName != "B" || items[1].GameName != "A" {
		t.Errorf("order not preserved: %v", items)
	}
	if items[0].Platform != "snes" {
		t.Errorf("platform not carried: %v", items[0])
	}
}

func TestItemsCarryArchiveFlag(t *testing.T) {
	tr := NewTracker()
	tr.SetPlatform("snes")
	tr.Toggle("snes", models.Game{Name: "A", URL: "http://host/a.zip"})
	tr.Toggle("snes", models.Game{Name: "B", URL: "http://host/b.iso"})

	items := tr.Collect()
	if !items[0].IsArchive {
		t.Error("zip item should be flagged as archive")
	}
	if items[1].IsArchive {
		t.Error("iso item should not be flagged as archive")
	}
}

func TestSwitchingPlatformClearsMarks(t *testing.T) {
	tr := NewTracker()
	tr.SetPlatform("snes")
	tr.Toggle("snes", models.Game{Name: "A", URL: "u-a"})

	tr.SetPlatform("snes") // same platform keeps marks
	if tr.Count() != 1 {
		t.Error("re-entering the same platform should keep marks")
	}

	tr.SetPlatform("megadrive")
	if tr.Count() != 0 {
		t.Error("switching platforms should clear marks")
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	tr.SetPlatform("snes")
	tr.Toggle("snes", models.Game{Name: "A", URL: "u-a"})
	tr.Clear()
	if tr.Count() != 0 || len(tr.Collect()) != 0 {
		t.Error("clear should discard all marks")
	}
}
