package i18n

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yml
var localesFS embed.FS

// Translations holds all reply strings organized by section
type Translations struct {
	Media    MediaTranslations    `yaml:"media"`
	Music    MusicTranslations    `yaml:"music"`
	Search   SearchTranslations   `yaml:"search"`
	Confirm  ConfirmTranslations  `yaml:"confirm"`
	Errors   ErrorTranslations    `yaml:"errors"`
	Birthday BirthdayTranslations `yaml:"birthday"`
	Reset    ResetTranslations    `yaml:"reset"`
}

type MediaTranslations struct {
	Usage           string `yaml:"usage"`
	Searching       string `yaml:"searching"`
	Resolving       string `yaml:"resolving"`
	Downloading     string `yaml:"downloading"`
	Processing      string `yaml:"processing"`
	Sending         string `yaml:"sending"`
	TryingAlternate string `yaml:"trying_alternate"`
	DoneVideo       string `yaml:"done_video"`
	DoneAudio       string `yaml:"done_audio"`
	CaptionVideo    string `yaml:"caption_video"`
	CaptionAudio    string `yaml:"caption_audio"`
	SizeNotice      string `yaml:"size_notice"`
}

type MusicTranslations struct {
	Usage         string `yaml:"usage"`
	Searching     string `yaml:"searching"`
	TitleLabel    string `yaml:"title_label"`
	ArtistLabel   string `yaml:"artist_label"`
	AlbumLabel    string `yaml:"album_label"`
	DurationLabel string `yaml:"duration_label"`
	LinkLabel     string `yaml:"link_label"`
	Question      string `yaml:"question"`
	Unknown       string `yaml:"unknown"`
}

type SearchTranslations struct {
	Usage       string `yaml:"usage"`
	Searching   string `yaml:"searching"`
	AuthorLabel string `yaml:"author_label"`
	Question    string `yaml:"question"`
}

type ConfirmTranslations struct {
	Expired      string `yaml:"expired"`
	MissingField string `yaml:"missing_field"`
}

type ErrorTranslations struct {
	Generic   string `yaml:"generic"`
	NotFound  string `yaml:"not_found"`
	Exhausted string `yaml:"exhausted"`
	Invalid   string `yaml:"invalid"`
	Transcode string `yaml:"transcode"`
	Delivery  string `yaml:"delivery"`
}

type BirthdayTranslations struct {
	Usage        string   `yaml:"usage"`
	BadDate      string   `yaml:"bad_date"`
	BadChars     string   `yaml:"bad_chars"`
	InvalidMonth string   `yaml:"invalid_month"`
	InvalidDay   string   `yaml:"invalid_day"`
	Saved        string   `yaml:"saved"`
	Updated      string   `yaml:"updated"`
	SaveFailed   string   `yaml:"save_failed"`
	Header       string   `yaml:"header"`
	Line         string   `yaml:"line"`
	Today        string   `yaml:"today"`
	Empty        string   `yaml:"empty"`
	ListFailed   string   `yaml:"list_failed"`
	Months       []string `yaml:"months"`
}

type ResetTranslations struct {
	Restarting string `yaml:"restarting"`
	Failed     string `yaml:"failed"`
}

// MonthName returns the localized name of month 1..12.
func (b BirthdayTranslations) MonthName(month int) string {
	if month < 1 || month > len(b.Months) {
		return fmt.Sprint(month)
	}
	return b.Months[month-1]
}

var (
	translationsCache = make(map[string]*Translations)
	cacheMutex        sync.RWMutex
	defaultLang       = "es"
)

// SupportedLanguages returns all available language codes
var SupportedLanguages = []struct {
	Code string
	Name string
}{
	{"es", "Español"},
	{"en", "English"},
}

// GetTranslations returns translations for the specified language
func GetTranslations(lang string) *Translations {
	lang = strings.ToLower(strings.TrimSpace(lang))

	cacheMutex.RLock()
	if t, ok := translationsCache[lang]; ok {
		cacheMutex.RUnlock()
		return t
	}
	cacheMutex.RUnlock()

	t, err := loadTranslations(lang)
	if err != nil {
		if lang != defaultLang {
			return GetTranslations(defaultLang)
		}
		return &Translations{}
	}

	cacheMutex.Lock()
	translationsCache[lang] = t
	cacheMutex.Unlock()

	return t
}

func loadTranslations(lang string) (*Translations, error) {
	filename := fmt.Sprintf("locales/%s.yml", lang)
	data, err := localesFS.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var t Translations
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// T is a convenience function for getting translations
func T(lang string) *Translations {
	return GetTranslations(lang)
}
