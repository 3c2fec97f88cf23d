// Package git reads repository metadata for the project being packaged.
//
// The only consumer today is the revision template marker, which stamps the
// short HEAD hash of the repository containing the configuration file.
package git
