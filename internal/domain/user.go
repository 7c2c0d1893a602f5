package domain

// QuestMode describes the questionnaire mode granted at the player's level.
type QuestMode struct {
	Mode        string `json:"mode"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// User is the signed-in player as reported by /auth/me.
type User struct {
	UserID        string     `json:"userId"`
	DisplayName   string     `json:"displayName"`
	AvatarURL     string     `json:"avatarUrl"`
	Level         int        `json:"level"`
	Exp           int        `json:"exp"`
	HeroClassID   string     `json:"heroClassId,omitempty"`
	HeroAvatarURL string     `json:"heroAvatarUrl,omitempty"`
	QuestMode     *QuestMode `json:"questMode,omitempty"`
	QuestionCount int        `json:"questionCount,omitempty"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Level       int    `json:"level"`
	Exp         int    `json:"exp"`
	AccessToken string `json:"accessToken"`
}

// User returns the user portion of the login response.
func (r LoginResponse) User() User {
	return User{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		AvatarURL:   r.AvatarURL,
		Level:       r.Level,
		Exp:         r.Exp,
	}
}
