package config

import (
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is an entry of the target language catalogue.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

var supportedTags = []language.Tag{
	language.English,
	language.Spanish,
	language.Japanese,
	language.French,
	language.Chinese,
	language.Portuguese,
	language.German,
}

// SupportedLanguages lists the languages offered for model download and as targets.
func SupportedLanguages() []Language {
	ret := make([]Language, 0, len(supportedTags))
	namer := display.English.Languages()
	for _, tag := range supportedTags {
		ret = append(ret, Language{
			Code:       tag.String(),
			Name:       namer.Name(tag),
			NativeName: display.Self.Name(tag),
		})
	}
	return ret
}

// IsSupportedLanguage reports whether code is in the catalogue.
func IsSupportedLanguage(code string) bool {
	return slices.ContainsFunc(supportedTags, func(tag language.Tag) bool {
		return tag.String() == code
	})
}
