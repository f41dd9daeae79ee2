package types

// MenuCommand is an action sent from the menu screen
type MenuCommand string

const (
	CommandNewWallpaper      MenuCommand = "newWallpaper"
	CommandDismissSheet      MenuCommand = "dismissSheet"
	CommandDismissOnboarding MenuCommand = "dismissOnboarding"
)

// MenuState is the observable state of the menu screen
type MenuState struct {
	SheetIsShown   bool     `json:"sheetIsShown"`
	ShowOnboarding bool     `json:"showOnboarding"`
	Styles         []string `json:"styles"`
}

// Settings represents the persisted user settings
type Settings struct {
	DownloadLocation    string `json:"downloadLocation"`
	RecentLimit         int    `json:"recentLimit"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}
