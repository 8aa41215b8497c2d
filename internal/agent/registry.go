package agent

import "strings"

// App is one entry of the fixed application registry.
type App struct {
	Name        string // lowercase key matched against instructions
	DisplayName string
	PackageID   string
}

// apps is scanned in order; the first name contained in an instruction wins.
var apps = []App{
	{"whatsapp", "WhatsApp", "com.whatsapp"},
	{"youtube", "YouTube", "com.google.android.youtube"},
	{"google chat", "Google Chat", "com.google.android.apps.dynamite"},
	{"gmail", "Gmail", "com.google.android.gm"},
	{"chrome", "Chrome", "com.android.chrome"},
	{"maps", "Maps", "com.google.android.apps.maps"},
	{"instagram", "Instagram", "com.instagram.android"},
	{"facebook", "Facebook", "com.facebook.katana"},
	{"twitter", "Twitter", "com.twitter.android"},
	{"telegram", "Telegram", "org.telegram.messenger"},
	{"spotify", "Spotify", "com.spotify.music"},
	{"netflix", "Netflix", "com.netflix.mediaclient"},
}

// Apps returns the registry in scan order.
func Apps() []App {
	out := make([]App, len(apps))
	copy(out, apps)
	return out
}

// LookupApp finds a registry entry by exact (case-insensitive) name.
func LookupApp(name string) (App, bool) {
	key := strings.ToLower(name)
	for _, a := range apps {
		if a.Name == key {
			return a, true
		}
	}
	return App{}, false
}
