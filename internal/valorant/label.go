package valorant

// Upstream serves map and mode names in two shapes: a plain string, or a
// nested object carrying display names and per-locale translations. Label is
// the tagged union of the two; Resolve flattens it with a fixed preference
// order so no caller ever trusts a single shape.

// preferredNameKeys are object keys that carry a display string directly,
// checked in order.
var preferredNameKeys = []string{"patched", "name", "display_name", "displayName", "label"}

// localizationKeys are object keys whose value maps locale → string.
var localizationKeys = []string{"localized", "localizations", "translations"}

// localePreference is the locale resolution order.
var localePreference = []string{"ko-KR", "ko", "en-US", "en"}

// altLabelKeys lists fallback metadata keys per logical field.
var altLabelKeys = map[string][]string{
	"map":  {"map_name", "mapid", "mapId", "mapID"},
	"mode": {"queue", "mode_name", "modeid", "modeId", "modeID"},
}

// Label is a map/mode name as served upstream: exactly one of Plain or
// Localized is set on a valid label.
type Label struct {
	Plain     string
	Localized map[string]string
}

// IsZero reports whether the label carries no usable value.
func (l Label) IsZero() bool { return l.Plain == "" && len(l.Localized) == 0 }

// Resolve returns the display string for the label: the plain form when
// present, otherwise the first non-empty locale in preference order, then
// any remaining locale. Empty string when nothing usable exists.
func (l Label) Resolve() string {
	if l.Plain != "" {
		return l.Plain
	}
	for _, locale := range localePreference {
		if v := clean(l.Localized[locale]); v != "" {
			return v
		}
	}
	for _, v := range l.Localized {
		if v := clean(v); v != "" {
			return v
		}
	}
	return ""
}

// labelFromValue builds a Label from a decoded JSON value. Strings become
// plain labels; objects are probed for preferred name keys first, then
// localization maps, then any nested value that itself yields a label.
func labelFromValue(v any) (Label, bool) {
	switch val := v.(type) {
	case string:
		if s := clean(val); s != "" {
			return Label{Plain: s}, true
		}
	case map[string]any:
		for _, key := range preferredNameKeys {
			if nested, ok := val[key]; ok {
				if l, ok := labelFromValue(nested); ok {
					return l, true
				}
			}
		}
		for _, key := range localizationKeys {
			if m, ok := val[key].(map[string]any); ok {
				locales := make(map[string]string, len(m))
				for locale, raw := range m {
					if s, ok := raw.(string); ok && clean(s) != "" {
						locales[locale] = clean(s)
					}
				}
				if len(locales) > 0 {
					return Label{Localized: locales}, true
				}
			}
		}
		for _, nested := range val {
			if l, ok := labelFromValue(nested); ok {
				return l, true
			}
		}
	}
	return Label{}, false
}

// MetadataLabel resolves the display string for a metadata field (e.g. "map"
// or "mode"), trying the field's alternate keys when the primary one is
// missing or unusable. Returns def when nothing resolves.
func MetadataLabel(meta map[string]any, key, def string) string {
	if meta == nil {
		return def
	}

	if l, ok := labelFromValue(meta[key]); ok {
		if s := l.Resolve(); s != "" {
			return s
		}
	}
	for _, alt := range altLabelKeys[key] {
		if l, ok := labelFromValue(meta[alt]); ok {
			if s := l.Resolve(); s != "" {
				return s
			}
		}
	}
	return def
}
