package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int voxmail_ready = 0;

static int
voxmail_espeak_init(void)
{
	if (voxmail_ready)
	{ return 0; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }

	voxmail_ready = 1;
	return 0;
}

static int
voxmail_espeak_say(const char *text, const char *lang)
{
	if (!text || !lang)
	{ return -1; }

	espeak_VOICE specs;
	memset(&specs, 0, sizeof(specs));
	specs.languages = lang;
	espeak_SetVoiceByProperties(&specs);

	espeak_ERROR rc = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	if (rc != EE_OK)
	{ return (int)rc; }

	espeak_Synchronize();
	return 0;
}

static void
voxmail_espeak_cancel(void)
{
	espeak_Cancel();
}
*/
import "C"

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// Espeak is the on-device synthesiser.
type Espeak struct {
	mu sync.Mutex
}

func NewEspeak() (*Espeak, error) {
	if rc := C.voxmail_espeak_init(); rc != 0 {
		return nil, fmt.Errorf("espeak init failed: %d", int(rc))
	}
	return &Espeak{}, nil
}

// Speak blocks until the text was spoken or ctx is cancelled.
func (e *Espeak) Speak(ctx context.Context, text, lang string) error {
	if text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(espeakVoice(lang))
	defer C.free(unsafe.Pointer(clang))

	done := make(chan C.int, 1)
	go func() { done <- C.voxmail_espeak_say(ctext, clang) }()

	select {
	case rc := <-done:
		if rc != 0 {
			return fmt.Errorf("espeak_say failed: %d", int(rc))
		}
		return nil
	case <-ctx.Done():
		C.voxmail_espeak_cancel()
		<-done
		return ctx.Err()
	}
}

func (e *Espeak) Stop() {
	C.voxmail_espeak_cancel()
}

// espeakVoice maps "en-US" to "en-us", espeak's voice naming.
func espeakVoice(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "en"
	}
	return tag
}
