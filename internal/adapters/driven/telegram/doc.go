// Package telegram talks to a Telegram bridge over JSON HTTP.
//
// The bridge is a small service holding the Telegram session. It exposes
// channel history newest-first:
//
//	GET {bridge}/channels/{channel}/messages?offset_id=N&limit=M
//	GET {bridge}/channels/{channel}/messages?ids=1,2,3
//	GET {bridge}/channels/{channel}/messages/{id}/media
//
// offset_id follows Telegram semantics: only messages with smaller ids are
// returned, and zero starts from the newest message. The media endpoint
// returns the best image of the message (photo or video thumbnail) and 404
// when the message has none.
package telegram
