// Command server runs the tab state engine: the local store, the extension
// bridge, the reconciler, and the REST surface.
package main
