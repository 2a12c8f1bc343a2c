package discord

import (
	"strings"
)

// findServer resolves a human-entered server name against the servers
// visible to the session. An exact case-insensitive match wins; failing
// that, the first server whose name contains the query is accepted.
// No match yields a NotFoundError listing every visible server.
func findServer(name string, servers []Server) (Server, error) {
	query := strings.ToLower(name)

	for _, s := range servers {
		if strings.ToLower(s.Name) == query {
			return s, nil
		}
	}
	for _, s := range servers {
		if strings.Contains(strings.ToLower(s.Name), query) {
			return s, nil
		}
	}

	names := make([]string, 0, len(servers))
	for _, s := range servers {
		names = append(names, s.Name)
	}
	return Server{}, &NotFoundError{Name: name, Available: names}
}
