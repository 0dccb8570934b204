package ledger

import "strings"

// betRef extrai o id da aposta de refs no formato "<op>:<betId>"; nil quando não há
func betRef(ref string) any {
	_, id, ok := strings.Cut(ref, ":")
	if !ok || id == "" {
		return nil
	}
	return id
}
