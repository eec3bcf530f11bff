package helpers

import "log"

//HandleError panics on a non-nil error. It is meant for command line tools and tests
//where there is nobody to hand the error back to.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Panicf reports a violated invariant. The incremental state is considered corrupt afterwards.
func Panicf(format string, args ...interface{}) {
	log.Panicf(format, args...)
}

//Assert panics with the message when the condition does not hold.
func Assert(condition bool, format string, args ...interface{}) {
	if !condition {
		log.Panicf(format, args...)
	}
}
