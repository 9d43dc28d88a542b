// Command conjunct predicts close approaches between pairs of satellites
// from TLE catalogs, as an HTTP service or from the command line.
package main

func main() {
	Execute()
}
