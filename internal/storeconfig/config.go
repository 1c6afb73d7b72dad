// Package storeconfig holds the remotely controlled store configuration and
// its compiled-in defaults.
package storeconfig

import (
	"encoding/json"
	"fmt"
)

// DefaultMaintenanceMessage is shown when maintenance is on but the config
// carries no message.
const DefaultMaintenanceMessage = "Store is under maintenance"

// SocialLinks are the developer's public profiles.
type SocialLinks struct {
	GitHub  string `json:"github"`
	X       string `json:"x"`
	Discord string `json:"discord"`
	Coffee  string `json:"coffee"`
}

// DevProfile describes the store developer.
type DevProfile struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Bio   string `json:"bio"`
}

// FAQItem is one question of the help section.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Icon     string `json:"icon"`
}

// StoreConfig is the remote configuration document. Every field is optional
// in the document; Decode fills the gaps from Defaults.
type StoreConfig struct {
	AppsJSONURL        string      `json:"appsJsonUrl,omitempty"`
	MirrorJSONURL      string      `json:"mirrorJsonUrl,omitempty"`
	MaintenanceMode    bool        `json:"maintenanceMode"`
	MaintenanceMessage string      `json:"maintenanceMessage,omitempty"`
	Announcement       string      `json:"announcement,omitempty"`
	MinStoreVersion    string      `json:"minStoreVersion,omitempty"`
	LatestStoreVersion string      `json:"latestStoreVersion,omitempty"`
	StoreDownloadURL   string      `json:"storeDownloadUrl,omitempty"`
	Socials            SocialLinks `json:"socials"`
	DevProfile         DevProfile  `json:"devProfile"`
	FAQs               []FAQItem   `json:"faqs"`
	SupportEmail       string      `json:"supportEmail,omitempty"`
	EasterEggURL       string      `json:"easterEggUrl,omitempty"`
}

// Defaults returns the configuration used when no remote config is available.
func Defaults() StoreConfig {
	return StoreConfig{
		Socials: SocialLinks{
			GitHub:  "https://github.com/RookieEnough",
			X:       "https://x.com/_Rookie_Z",
			Discord: "https://discord.com/invite/CrM6y4ujnq",
			Coffee:  "https://ko-fi.com/rookie_z",
		},
		DevProfile: DevProfile{
			Name:  "RookieZ",
			Bio:   "Building the open web, one commit at a time. No ads, no tracking, just code.",
			Image: "https://i.pinimg.com/originals/12/79/48/127948a3253396796874286570740594.jpg",
		},
		FAQs:         defaultFAQs(),
		SupportEmail: "orionstoredev@gmail.com",
		EasterEggURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
}

func defaultFAQs() []FAQItem {
	return []FAQItem{
		{
			Question: "Is Orion Store safe?",
			Answer:   "Absolutely. Orion Store is completely open-source. This means our code is public on GitHub for anyone to audit. We believe in transparency: no hidden trackers, no data mining, just a clean gateway to apps.",
			Icon:     "fa-shield-cat",
		},
		{
			Question: "Are apps on Orion safe?",
			Answer:   "Yes. I personally review and mod them using tools available on their official repositories to ensure they are safe, functional, and privacy-respecting before they land here.",
			Icon:     "fa-check-double",
		},
		{
			Question: "Download not working?",
			Answer:   "Don't panic! Just head to the app's detail page and use the report action. It will pre-fill an email so I can fix it ASAP.",
			Icon:     "fa-bug",
		},
		{
			Question: "Will there be more apps?",
			Answer:   "Yes, if there'll be more interesting apps to add on. As long as I find open-source or useful tools that deserve a spotlight, the library will keep growing.",
			Icon:     "fa-layer-group",
		},
		{
			Question: "How can I support?",
			Answer:   "By donation through ko-fi. Code fuels the store, but coffee fuels the dev! You can find the link in the socials section.",
			Icon:     "fa-heart",
		},
		{
			Question: "Is there any hidden easter egg?",
			Answer:   "Where the Architect stares, the secret sleeps.\n\nCount the legs of a spider. Count the vertices of a cube.\n\nStrike the Visage that many times.\n\nThe Golden Truth awaits those who know the rules... and so do I.",
			Icon:     "fa-user-secret",
		},
	}
}

// Decode parses a remote config document over Defaults. Fields missing from
// the document keep their default; an empty or null FAQ list keeps the
// default list.
func Decode(data []byte) (StoreConfig, error) {
	cfg := Defaults()
	cfg.FAQs = nil
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("failed to parse store config: %w", err)
	}
	if len(cfg.FAQs) == 0 {
		cfg.FAQs = defaultFAQs()
	}
	return cfg, nil
}

// MaintenanceNotice returns the message to show while maintenance is on.
func (c StoreConfig) MaintenanceNotice() string {
	if c.MaintenanceMessage != "" {
		return c.MaintenanceMessage
	}
	return DefaultMaintenanceMessage
}
