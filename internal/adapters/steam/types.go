package steam

type vanityDTO struct {
	Response struct {
		SteamID string `json:"steamid"`
		Success int    `json:"success"` // 1 ok, 42 sin match
		Message string `json:"message"`
	} `json:"response"`
}

type summariesDTO struct {
	Response struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
			ProfileURL  string `json:"profileurl"`
		} `json:"players"`
	} `json:"response"`
}
