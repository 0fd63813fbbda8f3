package entities

import (
	"time"
)

// Setting is one key of the settings table. Values are opaque strings; flags
// are "1"/"0" and numbers are decimal strings.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Setting) TableName() string {
	return "settings"
}

func (s Setting) PrimaryKey() string {
	return s.Key
}

// Known setting keys
const (
	// Store identity, printed on receipts
	SettingKeyStoreName    = "storeName"
	SettingKeyStorePhone   = "storePhone"
	SettingKeyStoreAddress = "storeAddress"
	SettingKeyStoreWelcome = "storeWelcome"
	SettingKeyStoreLogo    = "storeLogo"

	// Locale and appearance
	SettingKeyCurrency   = "currency"
	SettingKeyLanguage   = "language"
	SettingKeyDateFormat = "dateFormat"
	SettingKeyThemeColor = "themeColor"
	SettingKeyFontSize   = "fontSize"
	SettingKeyBgMode     = "bgMode"
	SettingKeyAppFont    = "appFont"

	// Input devices and sounds
	SettingKeySoundAdd      = "soundAdd"
	SettingKeySoundSell     = "soundSell"
	SettingKeySoundButtons  = "soundButtons"
	SettingKeyBarcodeReader = "barcodeReader"
	SettingKeyBarcodeAuto   = "barcodeAuto"
	SettingKeyTouchKeyboard = "touchKeyboard"

	// Receipt printing
	SettingKeyPaperSize    = "paperSize"
	SettingKeyPrintLogo    = "printLogo"
	SettingKeyPrintName    = "printName"
	SettingKeyPrintPhone   = "printPhone"
	SettingKeyPrintWelcome = "printWelcome"
	SettingKeyPrintAddress = "printAddress"
	SettingKeyPrintBarcode = "printBarcode"

	// Operations
	SettingKeyAutoBackup      = "autoBackup"
	SettingKeyInvoiceNumber   = "invoiceNumber"
	SettingKeyLowStockAlert   = "lowStockAlert"
	SettingKeyExpiryAlertDays = "expiryAlertDays"
	SettingKeyLastResetDate   = "lastResetDate"
	SettingKeyDailyCounter    = "dailyCounter"
)

// SettingDefault is one seeded key and its value.
type SettingDefault struct {
	Key   string
	Value string
}

// DefaultSettings is the table written by the seeder for every absent key,
// in seeding order.
var DefaultSettings = []SettingDefault{
	{SettingKeyStoreName, "اسم المتجر"},
	{SettingKeyStorePhone, ""},
	{SettingKeyStoreAddress, ""},
	{SettingKeyStoreWelcome, "شكراً لزيارتكم"},
	{SettingKeyStoreLogo, ""},
	{SettingKeyCurrency, "DA"},
	{SettingKeyLanguage, "ar"},
	{SettingKeyDateFormat, "DD/MM/YYYY"},
	{SettingKeyThemeColor, "blue_purple"},
	{SettingKeyFontSize, "15"},
	{SettingKeySoundAdd, "1"},
	{SettingKeySoundSell, "1"},
	{SettingKeySoundButtons, "1"},
	{SettingKeyBarcodeReader, "1"},
	{SettingKeyBarcodeAuto, "1"},
	{SettingKeyTouchKeyboard, "0"},
	{SettingKeyPaperSize, "80mm"},
	{SettingKeyPrintLogo, "1"},
	{SettingKeyPrintName, "1"},
	{SettingKeyPrintPhone, "1"},
	{SettingKeyPrintWelcome, "1"},
	{SettingKeyPrintAddress, "1"},
	{SettingKeyPrintBarcode, "1"},
	{SettingKeyAutoBackup, "1"},
	{SettingKeyInvoiceNumber, "1"},
	{SettingKeyLowStockAlert, "5"},
	{SettingKeyExpiryAlertDays, "30"},
	{SettingKeyLastResetDate, ""},
	{SettingKeyDailyCounter, "1"},
}

// UnseededDefaults are read with a fallback but never written by the seeder.
var UnseededDefaults = []SettingDefault{
	{SettingKeyBgMode, "dark"},
	{SettingKeyAppFont, "Cairo"},
}

// DefaultSettingValue returns the documented default for key, seeded or not.
func DefaultSettingValue(key string) (string, bool) {
	for _, d := range DefaultSettings {
		if d.Key == key {
			return d.Value, true
		}
	}
	for _, d := range UnseededDefaults {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}
