// Package websession keeps small per-browser state in an encrypted cookie
// using gorilla/sessions.
//
// The billing views use it for two things: one-shot flash messages shown
// after a redirect, and the identity of the signed-in subscriber in the demo
// server.
//
//	mgr, err := websession.NewFromConfig(cfg)
//	if err != nil {
//		return err
//	}
//
//	_ = mgr.AddFlash(w, r, websession.FlashSuccess, "Your subscription was canceled.")
//	flashes, _ := mgr.Flashes(w, r)
//
// Secrets rotate by prepending a new one to SESSION_SECRETS. Cookies written
// with an older secret stay readable until it is removed, after which they
// decode as an empty session.
package websession
