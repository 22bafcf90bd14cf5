// Package platform wraps the operating system details needed to describe
// files as archive members and to recreate them on extraction.
package platform
