package features

import "testing"

func TestManager(t *testing.T) {
	m := NewManager()
	m.Register(FeatureCacheEnabled, true, "cache")
	m.Register(FeatureRulesHotReload, false, "reload")

	if !m.IsEnabled(FeatureCacheEnabled) {
		t.Error("expected cache flag enabled")
	}
	if m.IsEnabled(FeatureEventHooksEnabled) {
		t.Error("unregistered flags default to disabled")
	}

	if !m.Set(FeatureRulesHotReload, true) {
		t.Error("expected Set to find a registered flag")
	}
	if m.Set("unknown", true) {
		t.Error("expected Set to report unknown flags")
	}
	if !m.IsEnabled(FeatureRulesHotReload) {
		t.Error("expected reload flag enabled after Set")
	}
	if m.IsEnabled("unknown") {
		t.Error("Set must not register new flags")
	}

	list := m.List()
	if len(list) != 2 || list[0].Name != FeatureCacheEnabled || list[1].Name != FeatureRulesHotReload {
		t.Errorf("unexpected list %+v", list)
	}
	list[0].Enabled = false
	if !m.IsEnabled(FeatureCacheEnabled) {
		t.Error("List must return copies")
	}

	var nilManager *Manager
	if nilManager.IsEnabled(FeatureCacheEnabled) {
		t.Error("nil manager has every flag off")
	}
}
