/*
Package sqrlsdk is the client side of the SQRL login service, and the home of
the wire types the server speaks.

# Identities

A client Identity holds three pieces of key material per site:

  - IDK: the Ed25519 identity key. Its base64url public half is the user id.
  - SUK: the server unlock key, an opaque blob the server stores and hands
    back on request.
  - VUK: the verify unlock key, the public half of a second Ed25519 key the
    client keeps offline. Unlock-class commands (enable, remove, rekey) must
    carry an unlock request signature (URS) made with it.

Every request is signed over the bytes returned by SignedMessage, which binds
the command, nut, path and IDK together so that a signature for one nut or
command can't be replayed against another.

# Login

	client := sqrlsdk.NewClient("https://login.example.com")
	id, _ := sqrlsdk.NewIdentity()

	nut, err := client.RequestNut(ctx, "/MessageMe/Now")
	res, err := client.Login(ctx, id, nut.Nut, "/MessageMe/Now", sqrlsdk.LoginOptions{Register: true})

	switch res.Outcome {
	case sqrlsdk.OutcomePending:
		// res.Question is showing; answer it, then log in again to collect
		// the ticket.
		_ = client.AnswerAsk(ctx, nut.Nut, 1)
		res, err = client.Login(ctx, id, nut.Nut, "/MessageMe/Now", sqrlsdk.LoginOptions{})
	case sqrlsdk.OutcomeDenied:
		fmt.Println("denied:", res.Reason)
	}

# Errors

Policy decisions (denied, pending) are ordinary responses. Transport and
protocol failures come back as *APIError.
*/
package sqrlsdk
