package classifier

import "regexp"

// netflixLink finds Netflix links in raw text and HTML bodies
var netflixLink = regexp.MustCompile(`(?i)https?://(www\.)?netflix\.com/[^\s"'<>)\]]+`)

var (
	homePath   = regexp.MustCompile(`(?i)/account/update-primary-location`)
	travelPath = regexp.MustCompile(`(?i)/account/travel/verify`)
)

// netflixRules is evaluated top to bottom. Password and sign-in mail is
// excluded before anything else. Household updates precede temporary
// access: those messages also mention it.
var netflixRules = []Rule{
	{
		Name: "password_reset",
		Kind: KindOther,
		Phrases: []string{
			"restablece",
			"restablecer",
			"restablecimiento",
			"contraseñ",
			"password",
		},
	},
	{
		Name:     "household_update",
		Kind:     KindHomeLink,
		LinkPath: homePath,
		WithURL:  true,
		Phrases: []string{
			"actualizar tu hogar",
			"actualiza tu hogar",
			"actualizar el hogar",
			"actualizar hogar con netflix",
			"confirmar tu hogar",
			"update your netflix household",
			"update your household",
			"update primary location",
			"confirm your netflix household",
		},
	},
	{
		Name:     "temporary_access",
		Kind:     KindAccessCode,
		LinkPath: travelPath,
		Phrases: []string{
			"código de acceso temporal",
			"codigo de acceso temporal",
			"código de acceso",
			"codigo de acceso",
			"acceso temporal",
			"inicio de sesión",
			"estoy de viaje",
			"temporary access code",
			"temporary access",
			"login code",
			"access code",
			"are you traveling",
		},
	},
}
