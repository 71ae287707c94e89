// Package tn3270 is a pure-Go client for the IBM 3270 terminal protocol
// family: Telnet (RFC 854/855), TN3270E (RFC 1576/1646/2355), and the
// 3270 data stream (GA23-0059). It negotiates a connection to a host,
// maintains a screen buffer, and exposes the keyboard as a small set of
// Action values rather than a scripting language.
//
// A typical session:
//
//	cfg := config.Default()
//	sess := tn3270.NewSession(cfg, nil)
//	if err := sess.Connect(ctx, "mainframe.example.com:23"); err != nil {
//		// handle error
//	}
//	defer sess.Close()
//
//	if err := sess.SendAction(tn3270.InsertText("MYUSER")); err != nil {
//		// handle error
//	}
//	if err := sess.SendAction(tn3270.Enter()); err != nil {
//		// handle error
//	}
//	screen, err := sess.ReadScreen()
//
// Errors returned by this package are always *tn3270.Error; callers
// should switch on its Kind field rather than comparing error strings.
package tn3270
