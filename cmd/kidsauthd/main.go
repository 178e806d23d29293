// Command kidsauthd serves the kidsAuth HTTP API and carries the operator
// commands that go with it.
//
// Every setting comes from KIDSAUTH_* environment variables:
//
//	KIDSAUTH_SESSION_SECRET=... KIDSAUTH_VERIFICATION_SECRET=... kidsauthd serve
//	KIDSAUTH_DB_DRIVER=mysql KIDSAUTH_DB_DSN='user:pw@tcp(db:3306)/kids?parseTime=true' kidsauthd migrate
//	kidsauthd accounts list --limit 20
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
