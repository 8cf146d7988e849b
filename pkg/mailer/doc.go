// Package mailer sends transactional e-mail, currently billing receipts.
//
// PostmarkSender delivers through Postmark; DevSender writes each message to
// disk for local development. ReceiptSender plugs either into
// billing.WithReceiptSender:
//
//	var sender mailer.Sender = mailer.NewDevSender(cfg.DevDir)
//	if cfg.Enabled() {
//		sender, err = mailer.NewPostmarkSender(cfg)
//	}
//	svc := billing.NewService(billingCfg, provider, store,
//		billing.WithReceiptSender(mailer.NewReceiptSender(sender, "Acme Pro")))
package mailer
