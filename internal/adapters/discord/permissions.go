package discord

import "github.com/bwmarrin/discordgo"

// isAdmin: owner del guild, bit Administrator, o alguno de ADMIN_ROLE_IDS.
func (r *Router) isAdmin(ic *discordgo.InteractionCreate) bool {
	if ic.Member == nil || ic.Member.User == nil {
		return false
	}
	// Owner
	if g, _ := r.s.State.Guild(ic.GuildID); g != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Administrator bit; el payload ya trae los permisos resueltos
	if ic.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	roles, _ := r.s.GuildRoles(ic.GuildID)
	var perms int64
outer:
	for _, rid := range ic.Member.Roles {
		for _, ro := range roles {
			if ro.ID == rid {
				perms |= ro.Permissions
				if (perms & discordgo.PermissionAdministrator) != 0 {
					break outer
				}
			}
		}
	}
	if (perms & discordgo.PermissionAdministrator) != 0 {
		return true
	}

	// Roles explícitos del bot
	return hasAnyRole(ic.Member.Roles, r.adminRoleIDs)
}

func hasAnyRole(have, want []string) bool {
	if len(want) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, rid := range have {
		set[rid] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func (r *Router) requireAdminOrRoles(ic *discordgo.InteractionCreate) bool {
	if r.isAdmin(ic) {
		return true
	}
	r.replyEphemeral(ic, "🔒 No tienes permisos para esta acción.")
	return false
}
