package shared

// Location-scoped permissions.
const (
	PermConfigRead  = "config.read"
	PermConfigWrite = "config.write"

	PermMovementsRead  = "movements.read"
	PermMovementsWrite = "movements.write"
)

// CoreScopes lists every location-scoped permission.
func CoreScopes() []string {
	return []string{
		PermConfigRead,
		PermConfigWrite,
		PermMovementsRead,
		PermMovementsWrite,
	}
}
