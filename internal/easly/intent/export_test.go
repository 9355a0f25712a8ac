package intent

var Singular = singular
