package domain

import "time"

type EventStatus string

const (
	EventActive  EventStatus = "active"
	EventStopped EventStatus = "stopped"
)

// EventKind decide cómo se muestra el roster y qué pide el modal de registro.
type EventKind string

const (
	KindSolo EventKind = "solo"
	KindClan EventKind = "clan"
)

// Member es un registro dentro de un equipo o en el banco de suplentes.
// SlotWeight > 1 cuando un clan registra varios jugadores bajo un mismo registro.
type Member struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName"`
	ExternalID  string            `json:"externalId"`
	SlotWeight  int               `json:"slotWeight"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Weight devuelve los slots que ocupa el registro (mínimo 1).
func (m Member) Weight() int {
	if m.SlotWeight < 1 {
		return 1
	}
	return m.SlotWeight
}

type Team struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// Occupancy suma los slotWeight, no la cantidad de miembros.
func (t Team) Occupancy() int {
	n := 0
	for _, m := range t.Members {
		n += m.Weight()
	}
	return n
}

func (t Team) indexOf(userID string) int {
	for i, m := range t.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

type Event struct {
	EventID           string      `json:"eventId"`
	GuildID           string      `json:"guildId"`
	ChannelID         string      `json:"channelId"`
	Title             string      `json:"title"`
	Description       string      `json:"description,omitempty"`
	ImageURL          string      `json:"imageUrl,omitempty"`
	Kind              EventKind   `json:"kind"`
	Status            EventStatus `json:"status"`
	MaxPlayersPerTeam *int        `json:"maxPlayersPerTeam,omitempty"`
	Teams             []Team      `json:"teams"`
	Substitutes       []Member    `json:"substitutes"`
	CreatedBy         string      `json:"createdBy,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`

	// Version es el token de concurrencia optimista; lo maneja storage.
	Version int64 `json:"-"`
}

func (e Event) Active() bool { return e.Status == EventActive }

// Capacity devuelve el máximo por equipo; ok=false = ilimitado.
func (e Event) Capacity() (int, bool) {
	if e.MaxPlayersPerTeam == nil || *e.MaxPlayersPerTeam <= 0 {
		return 0, false
	}
	return *e.MaxPlayersPerTeam, true
}

// FreeSlots de un equipo; ok=false = sin límite.
func (e Event) FreeSlots(t Team) (int, bool) {
	limit, ok := e.Capacity()
	if !ok {
		return 0, false
	}
	free := limit - t.Occupancy()
	if free < 0 {
		free = 0
	}
	return free, true
}

// Fits indica si weight entra en el equipo.
func (e Event) Fits(t Team, weight int) bool {
	free, limited := e.FreeSlots(t)
	return !limited || weight <= free
}

func (e Event) TeamIndex(name string) int {
	for i, t := range e.Teams {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Placement indica dónde está un usuario. Zero value = no registrado.
type Placement struct {
	Team  string
	Bench bool
}

func (p Placement) Registered() bool { return p.Bench || p.Team != "" }

func (p Placement) String() string {
	switch {
	case p.Bench:
		return "bench"
	case p.Team != "":
		return p.Team
	}
	return "-"
}

// Locate busca userID en equipos y banco.
func (e Event) Locate(userID string) Placement {
	for _, t := range e.Teams {
		if t.indexOf(userID) >= 0 {
			return Placement{Team: t.Name}
		}
	}
	if e.SubstituteIndex(userID) >= 0 {
		return Placement{Bench: true}
	}
	return Placement{}
}

// Find devuelve el registro de userID, esté donde esté.
func (e Event) Find(userID string) (Member, Placement, bool) {
	for _, t := range e.Teams {
		if i := t.indexOf(userID); i >= 0 {
			return t.Members[i], Placement{Team: t.Name}, true
		}
	}
	if i := e.SubstituteIndex(userID); i >= 0 {
		return e.Substitutes[i], Placement{Bench: true}, true
	}
	return Member{}, Placement{}, false
}

// FindByExternalID resuelve un id externo (SteamID) a su registro.
func (e Event) FindByExternalID(externalID string) (Member, Placement, bool) {
	for _, t := range e.Teams {
		for _, m := range t.Members {
			if m.ExternalID == externalID {
				return m, Placement{Team: t.Name}, true
			}
		}
	}
	for _, m := range e.Substitutes {
		if m.ExternalID == externalID {
			return m, Placement{Bench: true}, true
		}
	}
	return Member{}, Placement{}, false
}

func (e Event) SubstituteIndex(userID string) int {
	for i, m := range e.Substitutes {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// Clone hace copia profunda; el roster nunca muta el snapshot recibido.
func (e Event) Clone() Event {
	out := e
	if e.MaxPlayersPerTeam != nil {
		v := *e.MaxPlayersPerTeam
		out.MaxPlayersPerTeam = &v
	}
	out.Teams = make([]Team, len(e.Teams))
	for i, t := range e.Teams {
		out.Teams[i] = Team{Name: t.Name, Members: cloneMembers(t.Members)}
	}
	out.Substitutes = cloneMembers(e.Substitutes)
	return out
}

func cloneMembers(in []Member) []Member {
	out := make([]Member, len(in))
	for i, m := range in {
		out[i] = m
		if m.Attributes != nil {
			attrs := make(map[string]string, len(m.Attributes))
			for k, v := range m.Attributes {
				attrs[k] = v
			}
			out[i].Attributes = attrs
		}
	}
	return out
}
