package testutil

import (
	"fmt"
	"math/rand"
)

// RandomSwitch returns a function that will output various integers at different weights.
//
// Ex. RandomSwitch(2, 3, 5) will return a function that will output:
//   - `0` 20% of the time
//   - `1` 30% of the time
//   - `2` 50% of the time
func RandomSwitch(weights ...int) func(rndm *rand.Rand) int {
	if len(weights) == 0 {
		panic("a random switch must have at least 1 probability")
	}

	var sum int
	for _, p := range weights {
		if p <= 0 {
			panic("weights must be positive")
		}
		sum += p
	}

	return func(rndm *rand.Rand) int {
		value := rndm.Intn(sum)

		threshold := 0
		for i, w := range weights {
			threshold += w
			if value < threshold {
				return i
			}
		}

		panic(fmt.Sprintf("random value generated was out of bounds: %d", value))
	}
}

// noise that shows up around numbers on the billing page, none of it is a
// digit or a decimal point in any width.
var noiseRunes = []rune("元笔本期上月水费无欠金额:：,，()（） \t\n　abcxyzABC-/¥")

// RandomNoise generates a string of `length` runes that contains no digits
// and no decimal points.
func RandomNoise(rndm *rand.Rand, length int) string {
	out := make([]rune, length)
	for i := range out {
		out[i] = noiseRunes[rndm.Intn(len(noiseRunes))]
	}
	return string(out)
}

// RandomDigits generates a string of `length` ascii digits.
func RandomDigits(rndm *rand.Rand, length int) string {
	out := make([]byte, length)
	for i := range out {
		out[i] = byte('0' + rndm.Intn(10))
	}
	return string(out)
}

// Interleave splits `text` into runes and puts a random amount of noise
// (at most `maxNoise` runes) before each of them and at the end.
func Interleave(rndm *rand.Rand, text string, maxNoise int) string {
	var out []rune
	for _, c := range text {
		out = append(out, []rune(RandomNoise(rndm, rndm.Intn(maxNoise+1)))...)
		out = append(out, c)
	}
	out = append(out, []rune(RandomNoise(rndm, rndm.Intn(maxNoise+1)))...)
	return string(out)
}
