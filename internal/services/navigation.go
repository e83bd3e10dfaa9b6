package services

// NavItem is one entry of the client navigation. Feature, when set, names the
// system-config flag controlling the entry's visibility.
type NavItem struct {
	Path    string `json:"path"`
	Icon    string `json:"icon"`
	Label   string `json:"label"`
	Feature string `json:"feature,omitempty"`
}

// DefaultNavItems is the static ordered menu source list.
func DefaultNavItems() []NavItem {
	return []NavItem{
		{Path: "/", Icon: "fa-wallet", Label: "Wallet"},
		{Path: "/documents", Icon: "fa-file-shield", Label: "Documents", Feature: "vault"},
		{Path: "/notifications", Icon: "fa-bell", Label: "Alerts"},
		{Path: "/settings", Icon: "fa-cog", Label: "Settings"},
	}
}

// FilterNavItems hides tagged entries whose feature flag is explicitly false.
// Untagged entries, missing flags and a nil feature map all stay visible, and
// admins see everything. Order is preserved.
func FilterNavItems(items []NavItem, features map[string]bool, isAdmin bool) []NavItem {
	visible := make([]NavItem, 0, len(items))
	for _, item := range items {
		if item.Feature == "" || isAdmin || features == nil {
			visible = append(visible, item)
			continue
		}
		if enabled, ok := features[item.Feature]; ok && !enabled {
			continue
		}
		visible = append(visible, item)
	}
	return visible
}
