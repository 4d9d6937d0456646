package steam

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jose-valero/roster-bot/internal/app/service"
	"github.com/jose-valero/roster-bot/internal/domain"
)

var (
	id64Re   = regexp.MustCompile(`^7656119\d{10}$`)
	vanityRe = regexp.MustCompile(`^[A-Za-z0-9_-]{2,32}$`)
)

// Resolve acepta un SteamID64, una URL de perfil (/profiles/<id> o /id/<vanity>)
// o un vanity name suelto, y devuelve el SteamID64 con el nombre de perfil.
// Input mal formado -> domain.ErrInvalidIdentity; cualquier otro error es de la API.
func (c *Client) Resolve(ctx context.Context, raw string) (service.Identity, error) {
	id, vanity, err := parseRaw(raw)
	if err != nil {
		return service.Identity{}, err
	}
	if id == "" {
		id, err = c.resolveVanity(ctx, vanity)
		if err != nil {
			return service.Identity{}, err
		}
	}

	name, err := c.personaName(ctx, id)
	if err != nil {
		return service.Identity{CanonicalID: id}, err
	}
	return service.Identity{CanonicalID: id, DisplayName: name}, nil
}

// parseRaw devuelve el id64 si viene explícito, si no el vanity a resolver.
func parseRaw(raw string) (id64, vanity string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", fmt.Errorf("%w: empty steam id", domain.ErrInvalidIdentity)
	}
	if id64Re.MatchString(s) {
		return s, "", nil
	}

	if strings.Contains(s, "steamcommunity.com") {
		if !strings.HasPrefix(s, "http") {
			s = "https://" + s
		}
		u, perr := url.Parse(s)
		if perr != nil {
			return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidIdentity, perr)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch {
			case parts[0] == "profiles" && id64Re.MatchString(parts[1]):
				return parts[1], "", nil
			case parts[0] == "id" && vanityRe.MatchString(parts[1]):
				return "", parts[1], nil
			}
		}
		return "", "", fmt.Errorf("%w: unrecognized profile url", domain.ErrInvalidIdentity)
	}

	if vanityRe.MatchString(s) {
		return "", s, nil
	}
	return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidIdentity, raw)
}

func (c *Client) resolveVanity(ctx context.Context, vanity string) (string, error) {
	q := url.Values{}
	q.Set("vanityurl", vanity)

	var dto vanityDTO
	if err := c.doJSON(ctx, "/ISteamUser/ResolveVanityURL/v0001/", q, &dto); err != nil {
		return "", err
	}
	if dto.Response.Success != 1 || !id64Re.MatchString(dto.Response.SteamID) {
		return "", fmt.Errorf("%w: no steam profile named %q", domain.ErrInvalidIdentity, vanity)
	}
	return dto.Response.SteamID, nil
}

// personaName devuelve "" si Steam no conoce el id.
func (c *Client) personaName(ctx context.Context, id64 string) (string, error) {
	q := url.Values{}
	q.Set("steamids", id64)

	var dto summariesDTO
	if err := c.doJSON(ctx, "/ISteamUser/GetPlayerSummaries/v0002/", q, &dto); err != nil {
		return "", err
	}
	for _, p := range dto.Response.Players {
		if p.SteamID == id64 {
			return strings.TrimSpace(p.PersonaName), nil
		}
	}
	return "", nil
}
