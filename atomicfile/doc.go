/*
Package atomicfile writes files so that a reader never sees a partially
written file.

Data is written to a temporary file in the same directory which is
renamed to the destination on Close(). If Write() or Close() fails,
the temporary file is removed and the destination is left as it was.

	func saveBackup(path string, d []byte) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// no-op if Close() was called
		defer f.RemoveIfNotClosed()

		if _, err = f.Write(d); err != nil {
			return err
		}
		return f.Close()
	}

WriteFile does the above.
*/
package atomicfile
