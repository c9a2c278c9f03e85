/*
Package atomicfile replaces a file atomically: either the destination
ends up with the complete new content, or it is left exactly as it
was. No reader ever observes a half-written file.

Writing a file robustly means handling errors from Write() and
Close(), removing the partially written file on failure and only then
moving it into place. That logic is easy to get subtly wrong, this
package keeps it in one spot:

	func replaceFile(path string, data []byte) error {
		w, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// a no-op after a successful Close
		defer w.RemoveIfNotClosed()

		if _, err = w.Write(data); err != nil {
			return err
		}
		return w.Close()
	}
*/
package atomicfile
