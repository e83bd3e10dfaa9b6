package services

import "testing"

func navLabels(items []NavItem) []string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	return labels
}

func TestFilterNavItems(t *testing.T) {
	items := DefaultNavItems()

	t.Run("explicit false hides tagged entry", func(t *testing.T) {
		visible := FilterNavItems(items, map[string]bool{"vault": false}, false)
		for _, item := range visible {
			if item.Label == "Documents" {
				t.Fatalf("expected documents hidden: %v", navLabels(visible))
			}
		}
		if len(visible) != len(items)-1 {
			t.Fatalf("expected one entry hidden, got %v", navLabels(visible))
		}
	})

	t.Run("missing flag keeps entry visible", func(t *testing.T) {
		visible := FilterNavItems(items, map[string]bool{"something-else": false}, false)
		if len(visible) != len(items) {
			t.Fatalf("missing flag must not hide entries: %v", navLabels(visible))
		}
	})

	t.Run("explicit true keeps entry visible", func(t *testing.T) {
		visible := FilterNavItems(items, map[string]bool{"vault": true}, false)
		if len(visible) != len(items) {
			t.Fatalf("true flag must not hide entries: %v", navLabels(visible))
		}
	})

	t.Run("nil feature map shows everything", func(t *testing.T) {
		visible := FilterNavItems(items, nil, false)
		if len(visible) != len(items) {
			t.Fatalf("nil map must show all entries: %v", navLabels(visible))
		}
	})

	t.Run("admin bypasses flags", func(t *testing.T) {
		visible := FilterNavItems(items, map[string]bool{"vault": false}, true)
		if len(visible) != len(items) {
			t.Fatalf("admin must see every entry: %v", navLabels(visible))
		}
	})

	t.Run("order is preserved", func(t *testing.T) {
		visible := FilterNavItems(items, map[string]bool{"vault": false}, false)
		want := []string{"Wallet", "Alerts", "Settings"}
		got := navLabels(visible)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order changed: got %v want %v", got, want)
			}
		}
	})

	t.Run("untagged entries ignore flags entirely", func(t *testing.T) {
		visible := FilterNavItems(items, map[string]bool{
			"wallet":   false,
			"alerts":   false,
			"settings": false,
		}, false)
		if len(visible) != len(items) {
			t.Fatalf("untagged entries must always show: %v", navLabels(visible))
		}
	})
}
