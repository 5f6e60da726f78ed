/*
Package jsonstore is a key-value store persisted as a single JSON object
in a file.

The whole file is read into memory when the store is opened. Reads are
served from memory. Every mutation serializes all the data and over-writes
the file while holding an exclusive lock on it, so it's only suitable for
small amounts of data, like settings or credentials:

	st, err := jsonstore.Open("settings.json")
	if err != nil {
		// errors.Is(err, jsonstore.ErrInvalidLocation) if file doesn't
		// exist or is not writable
		return err
	}
	st.Set("facebook", map[string]any{"clientId": "x"})
	st.Update("facebook", map[string]any{"accessToken": "tok"})
	v := st.Get("facebook")

Mutations return false when they fail. Err() returns the reason.
A failed mutation doesn't change the in-memory data.

The backing file must already exist: neither Open nor Create will create it.

Each process has its own copy of the data. Writes from another process
are only visible after Reload(), or automatically when using Watch().
*/
package jsonstore
