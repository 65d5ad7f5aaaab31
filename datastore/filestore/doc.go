/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package filestore provides a file-based driver: each entity class is stored in
one file under a root directory, named after the class.

Files hold a list of records. A record carries an optional primary key, flat
string attributes and child elements; a Mapper converts between records and
entities. Two codecs are available:

XML:

	<objects>
	  <object id="1" name="first">
	    <tag value="a"/>
	  </object>
	</objects>

YAML:

	objects:
	  - id: 1
	    attributes:
	      name: first
	    children:
	      - name: tag
	        attributes:
	          value: a

A missing file is an empty store. A file that cannot be parsed yields a
MalformedStorageError. Writes rewrite the whole file, sorted by primary key.
*/
package filestore
