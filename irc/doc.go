// Package irc contains a minimal line-oriented Twitch IRC client used for
// anonymous chat ingestion.
//
// The client joins a single channel with the anonymous handshake
// (PASS oauth:anonymous / NICK justinfan12345), answers server PINGs, and
// forwards PRIVMSG lines to a subscriber callback. A watchdog declares the
// connection dead when six minutes pass without a readable line or probe,
// sending its own PING every four minutes of silence first. Dead connections
// are re-established with capped exponential backoff; exhausting the attempt
// budget leaves the client idle with a reconnect-failed flag that an external
// health check may act on.
//
// The client knows nothing about deck codes; it hands raw lines upward.
package irc
