//	@title			Campus Events API
//	@version		1.0
//	@description	Event registration and payment proof review for college events.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						Authentication
//	@description				Session token set by POST /user/login.

package main

import (
	"github.com/campusreg/service/internal/cli"

	_ "github.com/campusreg/service/docs/swagger"
)

func main() {
	cli.Execute()
}
