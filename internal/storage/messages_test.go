package storage

import "testing"

func TestMessageTracker(t *testing.T) {
	tr := NewMessageTracker()

	if _, ok := tr.Get("u1"); ok {
		t.Fatal("Get() on empty tracker returned a message")
	}

	if _, had := tr.UpsertAndGetPrev("u1", 10, 100); had {
		t.Fatal("first UpsertAndGetPrev() reported a previous message")
	}

	prev, had := tr.UpsertAndGetPrev("u1", 10, 101)
	if !had || prev.MessageID != 100 || prev.ChatID != 10 {
		t.Fatalf("UpsertAndGetPrev() = %+v, %v", prev, had)
	}

	if got, ok := tr.Get("u1"); !ok || got.MessageID != 101 {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}

	tr.Delete("u1")
	if _, ok := tr.Get("u1"); ok {
		t.Fatal("Get() after Delete returned a message")
	}
}
