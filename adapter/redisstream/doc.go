package redisstream

// Package redisstream provides a Redis Streams journal for xframe.
//
// Journal name: "redis-streams"
//
// Config keys:
// - addr: "host:port" (default "127.0.0.1:6379")
// - username, password, db
// - tls, tls_server_name
// - pool_size: client pool size (default 4)
// - stream: stream key (default "xframe:journal")
// - max_len_approx: XADD MAXLEN ~ bound, 0 disables trimming (default 100000)
// - ping_timeout: connect check (default 2s)
//
// Each dispatched message becomes one stream entry with the fields id, kind,
// codec, payload, producedAt, delivered and consumed.
//
// Example builder usage:
//
//  world, _ := xframe.NewWorldBuilder().
//      WithJournal(redisstream.JournalName, map[string]any{
//          "addr":           "localhost:6379",
//          "stream":         "arena:journal",
//          "max_len_approx": 50000,
//      }).
//      Build()
