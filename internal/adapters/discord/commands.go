package discord

import "github.com/bwmarrin/discordgo"

var (
	minOne     = 1.0
	maxPlayers = 50.0
	maxWindow  = 10080.0 // una semana en minutos
)

func optEventID() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "event_id",
		Description: "ID del evento (por defecto el último activo)",
	}
}

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Chequeo de vida del bot",
	},
	{
		Name:        "startreg",
		Description: "Abre la inscripción de un evento (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Título del evento", Required: true, MaxLength: 256},
			{Type: discordgo.ApplicationCommandOptionString, Name: "teams", Description: "Equipos separados por coma", Required: true},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "kind",
				Description: "Registro individual o por clan",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "solo", Value: "solo"},
					{Name: "clan", Value: "clan"},
				},
			},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "max_players", Description: "Cupo por equipo (vacío = sin límite)", MinValue: &minOne, MaxValue: maxPlayers},
			{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "Descripción", MaxLength: 2000},
			{Type: discordgo.ApplicationCommandOptionString, Name: "image_url", Description: "Imagen del embed"},
		},
	},
	{
		Name:        "stopreg",
		Description: "Cierra la inscripción (admins)",
		Options:     []*discordgo.ApplicationCommandOption{optEventID()},
	},
	{
		Name:        "delevent",
		Description: "Borra el evento y sus confirmaciones pendientes (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "event_id", Description: "ID del evento", Required: true},
		},
	},
	{
		Name:        "notification",
		Description: "Pide confirmación a los miembros de uno o más equipos (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "teams", Description: "Equipos separados por coma", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "send_time", Description: "Cuándo mandar el DM: YYYY-MM-DD HH:MM (hora del servidor)", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "response_minutes", Description: "Minutos para confirmar (por defecto el del servidor)", MinValue: &minOne, MaxValue: maxWindow},
			optEventID(),
		},
	},
	{
		Name:        "deluser",
		Description: "Saca a un jugador del evento por su Steam ID (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "steam_id", Description: "SteamID64 del jugador", Required: true},
			optEventID(),
		},
	},
	{
		Name:        "substitutes",
		Description: "Lista de suplentes",
		Options:     []*discordgo.ApplicationCommandOption{optEventID()},
	},
	{
		Name:        "swap",
		Description: "Cambia un suplente por un titular",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "substitute", Description: "Steam ID del suplente", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "target", Description: "Steam ID del titular", Required: true},
			optEventID(),
		},
	},
	{
		Name:        "jointeam",
		Description: "Mete a un suplente en un equipo (desplaza a los últimos si no hay lugar)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "substitute", Description: "Steam ID del suplente", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "team", Description: "Equipo destino", Required: true},
			optEventID(),
		},
	},
	{
		Name:        "settings",
		Description: "Ver o cambiar la configuración del servidor (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Ver configuración"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Actualizar configuración (sólo lo que pases)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "event_channel", Description: "Canal donde se publican los eventos", ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
					{Type: discordgo.ApplicationCommandOptionString, Name: "timezone", Description: "Zona horaria IANA, ej: Europe/Moscow"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "default_window_minutes", Description: "Minutos para confirmar por defecto", MinValue: &minOne, MaxValue: maxWindow},
				},
			},
		},
	},
}
