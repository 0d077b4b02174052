package recipe

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	c, err := NewSQLite(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteSeedsOnOpen(t *testing.T) {
	c := openTestCatalog(t)

	r, err := c.Get("classic_beef_burger")
	if err != nil {
		t.Fatalf("Get after seed: %v", err)
	}
	if r.StepCount() != 8 {
		t.Errorf("seeded recipe has %d steps, want 8", r.StepCount())
	}
	if len(r.Ingredients) == 0 {
		t.Error("seeded recipe lost its ingredients")
	}
}

func TestSQLiteGetUnknown(t *testing.T) {
	c := openTestCatalog(t)

	_, err := c.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLitePutRoundTrip(t *testing.T) {
	c := openTestCatalog(t)

	in := &Recipe{
		ID:       "pasta",
		Name:     "Weeknight Pasta",
		Servings: 2,
		PrepTime: 5,
		CookTime: 12,
		Steps: []Step{
			{Number: 1, Instruction: "Boil water"},
			{Number: 2, Instruction: "Cook pasta"},
		},
	}
	if err := c.Put(in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := c.Get("pasta")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != in.Name || out.StepCount() != 2 {
		t.Errorf("round trip = %+v", out)
	}

	// Put replaces on conflict.
	in.Name = "Faster Pasta"
	if err := c.Put(in); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	out, _ = c.Get("pasta")
	if out.Name != "Faster Pasta" {
		t.Errorf("updated name = %q", out.Name)
	}
}

func TestSQLiteListOrdered(t *testing.T) {
	c := openTestCatalog(t)

	if err := c.Put(&Recipe{ID: "aaa", Name: "A"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	all, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d", len(all))
	}
	if all[0].ID != "aaa" {
		t.Errorf("List[0] = %s, want aaa", all[0].ID)
	}
}
