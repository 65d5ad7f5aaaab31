/*
Package processor implements the objectsctl commands, which inspect and
rewrite the object files of the filestore backend.

Commands:

	list FILE                 print one line per object: key, then attributes
	get FILE KEY              print the object with KEY in the file's format
	check FILE                report objects without a key and duplicate keys
	normalize FILE            rewrite FILE with objects sorted by key
	convert IN OUT            rewrite IN in the format of OUT's extension

The format of a file follows its extension (.xml, .yaml or .yml) unless the
-format flag is given. Writes replace the target atomically.

Example:

	objectsctl convert data/Player.xml data/Player.yaml
	objectsctl -v list data/Player.yaml
*/
package processor
