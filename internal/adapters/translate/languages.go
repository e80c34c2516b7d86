package translate

type Language struct {
	Code string
	Name string
	Flag string
}

var languages = []Language{
	{Code: "ko", Name: "한국어", Flag: "🇰🇷"},
	{Code: "en", Name: "English", Flag: "🇺🇸"},
	{Code: "ja", Name: "日本語", Flag: "🇯🇵"},
	{Code: "zh", Name: "中文", Flag: "🇨🇳"},
	{Code: "zh-CN", Name: "简体中文", Flag: "🇨🇳"},
	{Code: "zh-TW", Name: "繁體中文", Flag: "🇹🇼"},
	{Code: "es", Name: "Español", Flag: "🇪🇸"},
	{Code: "fr", Name: "Français", Flag: "🇫🇷"},
	{Code: "de", Name: "Deutsch", Flag: "🇩🇪"},
	{Code: "it", Name: "Italiano", Flag: "🇮🇹"},
	{Code: "pt", Name: "Português", Flag: "🇵🇹"},
	{Code: "ru", Name: "Русский", Flag: "🇷🇺"},
	{Code: "ar", Name: "العربية", Flag: "🇸🇦"},
	{Code: "hi", Name: "हिन्दी", Flag: "🇮🇳"},
	{Code: "th", Name: "ไทย", Flag: "🇹🇭"},
	{Code: "vi", Name: "Tiếng Việt", Flag: "🇻🇳"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages))
	for _, l := range languages {
		m[l.Code] = l
	}
	return m
}()

// Languages lists the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Flag returns the flag for code, or a globe for unknown codes.
func Flag(code string) string {
	if l, ok := byCode[code]; ok {
		return l.Flag
	}
	return "🌐"
}

// Name returns the native name for code, or code itself.
func Name(code string) string {
	if l, ok := byCode[code]; ok {
		return l.Name
	}
	return code
}

func Supported(code string) bool {
	_, ok := byCode[code]
	return ok
}
