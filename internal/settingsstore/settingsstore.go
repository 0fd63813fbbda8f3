// Package settingsstore exposes the settings table as a typed structure.
//
// Priority: database > documented default. A stored value that cannot be
// read as the field's type (say fontSize="big") falls back to the default
// for that field only. Empty text and a zero number also read as the
// default; flags have no such fallback, an empty flag is off.
package settingsstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/database/settings"
	"github.com/mrlokans/posdz/internal/entities"
)

const tagName = "setting"

// Settings is the typed view of every known key.
type Settings struct {
	StoreName    string `setting:"storeName" json:"storeName"`
	StorePhone   string `setting:"storePhone" json:"storePhone"`
	StoreAddress string `setting:"storeAddress" json:"storeAddress"`
	StoreWelcome string `setting:"storeWelcome" json:"storeWelcome"`
	StoreLogo    string `setting:"storeLogo" json:"storeLogo"` // data URL

	Currency   string `setting:"currency" json:"currency"`
	Language   string `setting:"language" json:"language"`
	DateFormat string `setting:"dateFormat" json:"dateFormat"`
	ThemeColor string `setting:"themeColor" json:"themeColor"`
	FontSize   int    `setting:"fontSize" json:"fontSize"`
	BgMode     string `setting:"bgMode" json:"bgMode"`
	AppFont    string `setting:"appFont" json:"appFont"`

	SoundAdd      bool `setting:"soundAdd" json:"soundAdd"`
	SoundSell     bool `setting:"soundSell" json:"soundSell"`
	SoundButtons  bool `setting:"soundButtons" json:"soundButtons"`
	BarcodeReader bool `setting:"barcodeReader" json:"barcodeReader"`
	BarcodeAuto   bool `setting:"barcodeAuto" json:"barcodeAuto"`
	TouchKeyboard bool `setting:"touchKeyboard" json:"touchKeyboard"`

	PaperSize    string `setting:"paperSize" json:"paperSize"`
	PrintLogo    bool   `setting:"printLogo" json:"printLogo"`
	PrintName    bool   `setting:"printName" json:"printName"`
	PrintPhone   bool   `setting:"printPhone" json:"printPhone"`
	PrintWelcome bool   `setting:"printWelcome" json:"printWelcome"`
	PrintAddress bool   `setting:"printAddress" json:"printAddress"`
	PrintBarcode bool   `setting:"printBarcode" json:"printBarcode"`

	AutoBackup      bool   `setting:"autoBackup" json:"autoBackup"`
	InvoiceNumber   int    `setting:"invoiceNumber" json:"invoiceNumber"`
	LowStockAlert   int    `setting:"lowStockAlert" json:"lowStockAlert"`
	ExpiryAlertDays int    `setting:"expiryAlertDays" json:"expiryAlertDays"`
	LastResetDate   string `setting:"lastResetDate" json:"lastResetDate"`
	DailyCounter    int    `setting:"dailyCounter" json:"dailyCounter"`
}

// SettingInfo is one key with its effective value and where it came from.
type SettingInfo struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"` // "database" or "default"
}

type SettingsStore struct {
	repo *settings.Repository
}

func New(repo *settings.Repository) *SettingsStore {
	return &SettingsStore{repo: repo}
}

func newDecoder(out *Settings) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tagName,
		WeaklyTypedInput: true,
		Result:           out,
	})
}

// Defaults returns the settings a fresh database reads as.
func Defaults() Settings {
	var s Settings
	values := make(map[string]any)
	for _, def := range entities.DefaultSettings {
		values[def.Key] = def.Value
	}
	for _, def := range entities.UnseededDefaults {
		values[def.Key] = def.Value
	}

	decoder, err := newDecoder(&s)
	if err != nil {
		panic(fmt.Sprintf("settingsstore: %v", err))
	}
	if err := decoder.Decode(values); err != nil {
		panic(fmt.Sprintf("settingsstore: bad default: %v", err))
	}
	return s
}

// fieldKinds maps each setting key to the kind of its field.
var fieldKinds = func() map[string]reflect.Kind {
	t := reflect.TypeOf(Settings{})
	kinds := make(map[string]reflect.Kind, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		kinds[f.Tag.Get(tagName)] = f.Type.Kind()
	}
	return kinds
}()

// keepsDefault reports whether a stored value leaves the default in place.
func keepsDefault(key, value string) bool {
	switch fieldKinds[key] {
	case reflect.String:
		return value == ""
	case reflect.Int:
		n, err := cast.ToIntE(value)
		return value == "" || (err == nil && n == 0)
	}
	return false
}

// Load reads every stored key over the defaults.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	out := Defaults()

	stored, err := s.repo.All(ctx)
	if err != nil {
		return out, err
	}

	for _, key := range knownKeys() {
		value, ok := stored[key]
		if !ok || keepsDefault(key, value) {
			continue
		}
		// One key at a time so a malformed value only loses its own field.
		before := out
		decoder, err := newDecoder(&out)
		if err != nil {
			return out, err
		}
		if err := decoder.Decode(map[string]any{key: value}); err != nil {
			out = before
			zap.L().Warn("ignoring malformed setting",
				zap.String("key", key), zap.String("value", value), zap.Error(err))
		}
	}
	return out, nil
}

// Save writes every field. Booleans are stored as "1"/"0".
func (s *SettingsStore) Save(ctx context.Context, in Settings) error {
	values, err := Encode(in)
	if err != nil {
		return err
	}
	return s.repo.SetSettings(ctx, values)
}

// Encode flattens settings into the stored string form.
func Encode(in Settings) (map[string]string, error) {
	raw := make(map[string]any)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: tagName,
		Result:  &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(in); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		values[key] = FormatValue(value)
	}
	return values, nil
}

// FormatValue renders a typed value the way the settings table stores it.
func FormatValue(value any) string {
	if b, ok := value.(bool); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return cast.ToString(value)
}

// Flag reads a stored flag: "1" and "true" are on, anything else is off.
func Flag(value string) bool {
	return cast.ToBool(value)
}

// Int reads a stored number, returning fallback when it is not one.
func Int(value string, fallback int) int {
	n, err := cast.ToIntE(value)
	if err != nil {
		return fallback
	}
	return n
}

// Describe lists every known key with its effective value and source.
func (s *SettingsStore) Describe(ctx context.Context) ([]SettingInfo, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	keys := knownKeys()
	infos := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		if value, ok := stored[key]; ok {
			infos = append(infos, SettingInfo{Key: key, Value: value, Source: "database"})
			continue
		}
		def, _ := entities.DefaultSettingValue(key)
		infos = append(infos, SettingInfo{Key: key, Value: def, Source: "default"})
	}
	return infos, nil
}

// IsKnownKey reports whether key maps to a Settings field.
func IsKnownKey(key string) bool {
	_, ok := entities.DefaultSettingValue(key)
	return ok
}

func knownKeys() []string {
	keys := make([]string, 0, len(entities.DefaultSettings)+len(entities.UnseededDefaults))
	for _, def := range entities.DefaultSettings {
		keys = append(keys, def.Key)
	}
	for _, def := range entities.UnseededDefaults {
		keys = append(keys, def.Key)
	}
	sort.Strings(keys)
	return keys
}
