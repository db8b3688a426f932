package cache

import "testing"

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "basic key",
			key:  Key{Market: "de-de", Page: 3, CacheVersion: "1712345678"},
			want: "stories:de-de:cv=1712345678:page=3",
		},
		{
			name: "market is lowercased",
			key:  Key{Market: "EN-US", Page: 1, CacheVersion: "42"},
			want: "stories:en-us:cv=42:page=1",
		},
		{
			name: "distinct cache versions produce distinct keys",
			key:  Key{Market: "de-de", Page: 3, CacheVersion: "999"},
			want: "stories:de-de:cv=999:page=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyString_Deterministic(t *testing.T) {
	key := Key{Market: "fr-fr", Page: 7, CacheVersion: "abc"}
	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
