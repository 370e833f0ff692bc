// @title           MLT Identity API
// @version         1.0
// @description     Authentication, second factor, session, dashboard settings and audit ledger API.
// @BasePath        /api/v1
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"os"

	"github.com/agent007moss/MLT/cmd/mltauth/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
