// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

// Package mdcollab is the relay of a collaborative markdown editor.
//
// Clients connect over a websocket and join a room named after the document
// they edit. The relay keeps who is in each room and where their cursor is,
// and fans every SYNC out to the room. It never stores documents: each SYNC
// carries the whole text and the last one processed wins.
//
// Basic usage:
//
//	srv, err := mdcollab.NewServer(
//		mdcollab.WithPort(8080),
//		mdcollab.WithPath("/ws"),
//		mdcollab.WithMaxParticipants(10),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Fatal(srv.Start())
//
// The wire events live in the protocol package, the client side in session
// and the formatting commands in editor.
package mdcollab
