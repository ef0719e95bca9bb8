// Command soundscout is the CLI front-end for the soundscoutd daemon.
package main
