// Auth Server
//
// The server guards the SongSeeker web front end with the same htpasswd file
// nginx uses. A successful POST /auth/login sets the songseeker_auth cookie,
// an HS256 JWT valid for thirty days. GET /auth/verify answers 200 or 401 so
// a reverse proxy can use it as an auth_request target, and GET /auth/logout
// clears the cookie.
//
// Only bcrypt hashes ($2a$, $2b$, $2y$) are accepted. The signing secret comes
// from COOKIE_SECRET_FILE; without it a random secret is generated at startup.
//
// When a static directory is configured it is served from / behind the
// session check, except for login.html.
//
// # Middleware
//
// [BasicRouter] wraps every route in the registered [Middleware]:
// request logging and CORS, which also answers OPTIONS preflights with 204.
package server
