package store

// Connection is the write capability decided once at startup: either a
// configured Writer or nothing.
type Connection struct {
	writer Writer
}

// Configured returns a connection backed by w.
func Configured(w Writer) Connection {
	return Connection{writer: w}
}

// Unconfigured returns a connection that cannot write.
func Unconfigured() Connection {
	return Connection{}
}

// Writer returns the underlying writer and whether one is configured.
func (c Connection) Writer() (Writer, bool) {
	return c.writer, c.writer != nil
}
