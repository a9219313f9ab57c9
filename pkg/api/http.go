package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"citysafe/pkg/api/handlers"
	"citysafe/pkg/auth"
	"citysafe/pkg/external"
	"citysafe/pkg/live"
	"citysafe/pkg/media"
)

// Deps carries the shared components handlers need.
type Deps struct {
	Hub     *live.Hub
	Media   *media.Store
	Weather *external.WeatherClient
	Geocode *external.GeocodeClient
	// RetentionRun triggers an immediate retention sweep (admin only).
	RetentionRun func() error
}

// Handler returns the /v1 API router. The auth gateway middleware must
// wrap this handler; routes assume X-Role-Name is already resolved.
func Handler(d Deps) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()

	// endpoints that do not require a signed user identity
	handlers.RegisterLogin(v1)
	handlers.RegisterSigning(v1)
	handlers.RegisterExternal(v1, d.Weather, d.Geocode)
	handlers.RegisterMediaRead(v1, d.Media)

	// user-facing endpoints require the HMAC-signed identity
	signed := v1.NewRoute().Subrouter()
	signed.Use(auth.RequireSignedUser)
	handlers.RegisterChannels(signed, d.Hub)
	handlers.RegisterMessages(signed, d.Hub)
	handlers.RegisterSOS(signed, d.Hub, d.Geocode)
	handlers.RegisterProfiles(signed)
	handlers.RegisterReports(signed)
	handlers.RegisterMediaWrite(signed, d.Media)

	// admin surface: admin keys pass the identity middleware untouched,
	// signed users are resolved so profile-level admins qualify too
	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireSignedUser)
	handlers.RegisterAdmin(admin, d.RetentionRun)

	return r
}
