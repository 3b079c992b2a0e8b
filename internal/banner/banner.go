package banner

import (
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

func Print() {
	ptermLogo, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithRGB("Time", pterm.NewRGB(53, 142, 255)),
		putils.LettersFromStringWithRGB("Lynx", pterm.NewRGB(0, 0, 0))).
		Srender()

	pterm.DefaultCenter.Print(ptermLogo)

	pterm.DefaultCenter.Print(
		pterm.DefaultHeader.
			WithFullWidth().
			WithBackgroundStyle(pterm.NewStyle(pterm.BgLightBlue)).
			WithMargin(5).
			Sprint(pterm.White("🐱 TimeLynx - Filesystem Timeline Analytics")),
	)

	pterm.Info.Println(
		"Bodyfile ingestion and timeline analytics for forensic investigations." +
			"\nParses mactime 3.x bodyfiles into a queryable activity timeline." +
			"\nVersion 0.0.1.",
	)
}
